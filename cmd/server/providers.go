package main

import (
	"corpatlas/internal/catalog"
	"corpatlas/internal/providers/demo"
	"corpatlas/internal/providers/france/bodacc"
	"corpatlas/internal/providers/france/inpi"
	"corpatlas/internal/providers/france/insee"
	"corpatlas/internal/providers/france/pappers"
	"corpatlas/internal/providers/france/societecom"
	"corpatlas/internal/providers/uk/companieshouse"
)

// registrations lists every provider compiled into this build. Adding a
// source means adding one line here; the registry handles availability
// based on which credentials the environment actually carries.
func registrations() []catalog.Registration {
	return []catalog.Registration{
		insee.Registration(),
		inpi.Registration(),
		pappers.Registration(),
		bodacc.Registration(),
		societecom.Registration(),
		companieshouse.Registration(),
		demo.Registration(),
	}
}
