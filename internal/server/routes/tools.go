// Package routes exposes the /-/ diagnostics endpoints.
package routes

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/intraweb/intraweb/internal/servlet"
)

// ToolsOptions feeds the diagnostics payload.
type ToolsOptions struct {
	Registry    *servlet.Registry
	PublicTools []string
	RootTool    string
}

// RegisterToolRoutes exposes /-/tools so operators can inspect which tools
// and servlets are wired without touching the authorization gate.
func RegisterToolRoutes(app *fiber.App, opts ToolsOptions) {
	if app == nil || opts.Registry == nil {
		return
	}

	app.Get("/-/tools", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"tools":        encodeTools(opts.Registry),
			"public_tools": opts.PublicTools,
			"root_tool":    opts.RootTool,
		})
	})

	app.Get("/-/tools/:tool", func(c fiber.Ctx) error {
		tool := strings.ToLower(strings.TrimSpace(c.Params("tool")))
		if tool == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "tool_required"})
		}
		if !opts.Registry.HasTool(tool) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "tool_not_found"})
		}
		return c.JSON(fiber.Map{
			"tool":     tool,
			"servlets": encodeServlets(opts.Registry.List(tool)),
		})
	})
}

type servletPayload struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Methods     []string `json:"methods"`
}

func encodeTools(registry *servlet.Registry) []fiber.Map {
	tools := registry.Tools()
	result := make([]fiber.Map, 0, len(tools))
	for _, tool := range tools {
		result = append(result, fiber.Map{
			"tool":     tool,
			"servlets": encodeServlets(registry.List(tool)),
		})
	}
	return result
}

func encodeServlets(descriptors []servlet.Descriptor) []servletPayload {
	result := make([]servletPayload, 0, len(descriptors))
	for _, d := range descriptors {
		result = append(result, servletPayload{
			Name:        d.Name,
			Description: d.Description,
			Methods:     d.Methods(),
		})
	}
	return result
}
