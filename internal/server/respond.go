package server

import (
	"github.com/gofiber/fiber/v3"
)

// ErrorFrame is the uniform error payload: every failure, expected or not,
// reaches the client in this shape and nothing else.
type ErrorFrame struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Help    string `json:"help"`
}

const defaultHelp = "If the problem persists, contact the intranet administrator."

func renderError(c fiber.Ctx, status int, frame ErrorFrame) error {
	if frame.Help == "" {
		frame.Help = defaultHelp
	}
	return c.Status(status).JSON(frame)
}

func renderNotFound(c fiber.Ctx, message string) error {
	return renderError(c, fiber.StatusNotFound, ErrorFrame{
		Title:   "Not Found",
		Message: message,
	})
}

func renderForbidden(c fiber.Ctx) error {
	return renderError(c, fiber.StatusForbidden, ErrorFrame{
		Title:   "Forbidden",
		Message: "You are not authorized to use this tool.",
		Help:    "Ask the tool owner to grant you access.",
	})
}

func renderBadRequest(c fiber.Ctx, message string) error {
	return renderError(c, fiber.StatusBadRequest, ErrorFrame{
		Title:   "Bad Request",
		Message: message,
	})
}

func renderMethodNotAllowed(c fiber.Ctx, allow string) error {
	c.Set(fiber.HeaderAllow, allow)
	return renderError(c, fiber.StatusMethodNotAllowed, ErrorFrame{
		Title:   "Method Not Allowed",
		Message: "The servlet does not handle this HTTP method.",
		Help:    "Supported methods: " + allow + ".",
	})
}

// renderInternal hides every unexpected failure behind one generic frame;
// details go to the log only.
func renderInternal(c fiber.Ctx) error {
	return renderError(c, fiber.StatusInternalServerError, ErrorFrame{
		Title:   "Internal Error",
		Message: "The server failed to process this request.",
	})
}
