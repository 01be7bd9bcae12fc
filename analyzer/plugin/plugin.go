// Package plugin registers the task handler analyzer as a golangci-lint module plugin.
package plugin

import (
	"github.com/cschleiden/go-zeebe/analyzer"
	"github.com/golangci/plugin-module-register/register"
	"golang.org/x/tools/go/analysis"
)

func init() {
	register.Plugin("gozeebe", New)
}

// Settings is the plugin configuration under linters.settings.custom.gozeebe.settings.
type Settings struct {
	// Registrations lists additional functions taking a task handler, mapped to the index of the
	// handler argument.
	Registrations map[string]int `json:"registrations"`
}

type plugin struct {
	settings Settings
}

func New(settings any) (register.LinterPlugin, error) {
	s, err := register.DecodeSettings[Settings](settings)
	if err != nil {
		return nil, err
	}

	return &plugin{settings: s}, nil
}

func (p *plugin) BuildAnalyzers() ([]*analysis.Analyzer, error) {
	return []*analysis.Analyzer{analyzer.New(p.settings.Registrations)}, nil
}

func (p *plugin) GetLoadMode() string {
	return register.LoadModeTypesInfo
}
