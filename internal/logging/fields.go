package logging

import "github.com/sirupsen/logrus"

// BaseFields builds the action + config path fields reused by every CLI
// entry point.
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RequestFields provides the tool/principal/decision fields shared by the
// dispatcher's request logs.
func RequestFields(tool, principal, decision string, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"tool":      tool,
		"principal": principal,
		"decision":  decision,
		"cache_hit": cacheHit,
	}
}
