package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"hreq/internal/config"
	"hreq/internal/errdef"
)

// Run starts the composer and blocks until the user quits. When v is not
// nil its config file is watched and changes are applied live.
func Run(opts Options, v *viper.Viper) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen())

	if v != nil {
		config.Watch(v,
			func(cfg config.Config, _ fsnotify.Event) {
				p.Send(ConfigMsg{Config: cfg})
			},
			func(err error) {
				p.Send(statusMsg{text: errdef.Detail(err), level: statusWarn})
			},
		)
	}

	_, err := p.Run()
	return err
}
