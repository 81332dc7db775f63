package model

import (
	"strings"

	cerrors "surface/internal/core/errors"
	"surface/internal/engine/provider"
	"surface/internal/engine/signature"
)

// lookupType finds an exported type by name, trying progressively looser
// matches so a caller may omit casing, the namespace, or the generic arity
// marker: exact qualified, case-insensitive qualified, case-insensitive
// simple name, then simple name ignoring a trailing arity marker.
func lookupType(handle provider.ModuleHandle, name string) (provider.TypeHandle, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, cerrors.New(cerrors.CodeNotFound, "type name is empty")
	}

	types, err := handle.ExportedTypes()
	if err != nil {
		return nil, cerrors.AddContext(err, cerrors.CtxModule, handle.Name())
	}

	tiers := []func(th provider.TypeHandle) bool{
		func(th provider.TypeHandle) bool {
			return th.FullName() == name
		},
		func(th provider.TypeHandle) bool {
			return strings.EqualFold(th.FullName(), name)
		},
		func(th provider.TypeHandle) bool {
			return strings.EqualFold(signature.SimpleName(th.FullName()), name)
		},
		func(th provider.TypeHandle) bool {
			return strings.EqualFold(signature.SimpleName(th.FullName()), signature.SimpleName(name))
		},
	}

	for _, match := range tiers {
		for _, th := range types {
			if match(th) {
				return th, nil
			}
		}
	}

	err = cerrors.Newf(cerrors.CodeNotFound, "type %q not found in module %s", name, handle.Name())
	return nil, cerrors.AddContext(err, cerrors.CtxType, name)
}
