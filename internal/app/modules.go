package app

import (
	"io"

	"github.com/specialistvlad/sweepgrid/internal/registry"
	"github.com/specialistvlad/sweepgrid/modules/env_vars"
	"github.com/specialistvlad/sweepgrid/modules/http_request"
	"github.com/specialistvlad/sweepgrid/modules/print"
)

// coreModules is the definitive list of all modules that are compiled into
// the sweepgrid binary. Console output of tasks goes to outW.
func coreModules(outW io.Writer) []registry.Module {
	return []registry.Module{
		&env_vars.Module{},
		&print.Module{Out: outW},
		&http_request.Module{},
	}
}
