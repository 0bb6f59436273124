package tui

import (
	"hreq/internal/config"
	"hreq/internal/model"
)

type statusLevel int

const (
	statusInfo statusLevel = iota
	statusWarn
	statusError
	statusSuccess
)

type statusMsg struct {
	text  string
	level statusLevel
}

// responseMsg carries a finished request back to Update.
type responseMsg struct {
	record   model.RequestRecord
	response *model.Response
	warnings []string
	err      error
}

// ConfigMsg delivers a reloaded configuration to a running program.
type ConfigMsg struct {
	Config config.Config
}
