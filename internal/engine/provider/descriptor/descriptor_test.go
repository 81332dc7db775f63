package descriptor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "surface/internal/core/errors"
	"surface/internal/engine/provider"
)

const coreDescriptor = `{
  "module": "Acme.Core",
  "types": [
    {
      "fullName": "Acme.Core.Widget",
      "base": {"name": "Acme.Core.Component"},
      "interfaces": [{"name": "Acme.Core.IWidget"}],
      "methods": [
        {
          "name": "Resize",
          "virtual": true,
          "returns": {"name": "System.Void"},
          "params": [
            {"name": "width", "type": {"name": "System.Int32"}},
            {"name": "height", "type": {"name": "System.Int32"}}
          ]
        }
      ],
      "fields": [
        {
          "name": "MaxDepth",
          "static": true,
          "constant": true,
          "type": {"name": "System.Int32"},
          "constValue": {"kind": "number", "value": "16"}
        }
      ]
    },
    {
      "fullName": "Acme.Core.Component",
      "abstract": true,
      "base": {"name": "System.Object"}
    },
    {"fullName": "Acme.Core.IWidget", "interface": true},
    {
      "fullName": "Acme.Core.Loader",
      "methods": [
        {
          "name": "Load",
          "returns": {"name": "Acme.Base.Resource", "module": "Acme.Base"}
        }
      ]
    }
  ]
}`

const baseDescriptor = `{
  "module": "Acme.Base",
  "types": [{"fullName": "Acme.Base.Resource", "sealed": true}]
}`

func writeDescriptor(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCanOpen(t *testing.T) {
	p := New()
	assert.True(t, p.CanOpen("/pkg/Acme.Core.apim.json"))
	assert.True(t, p.CanOpen("/pkg/ACME.CORE.APIM.JSON"))
	assert.False(t, p.CanOpen("/pkg/Acme.Core.dll"))
	assert.False(t, p.CanOpen("/pkg/Acme.Core.json"))
}

func TestOpenExposesTypes(t *testing.T) {
	dir := t.TempDir()
	path := writeDescriptor(t, dir, "Acme.Core.apim.json", coreDescriptor)

	handle, err := New().Open(path, nil)
	require.NoError(t, err)
	defer handle.Close()

	assert.Equal(t, "Acme.Core", handle.Name())
	assert.Equal(t, path, handle.Path())

	types, err := handle.ExportedTypes()
	require.NoError(t, err)
	require.Len(t, types, 4)

	var widget provider.TypeHandle
	for _, th := range types {
		if th.FullName() == "Acme.Core.Widget" {
			widget = th
		}
	}
	require.NotNil(t, widget)
	assert.Equal(t, "Acme.Core", widget.Namespace())

	base, ok := widget.Base()
	require.True(t, ok)
	assert.Equal(t, "Acme.Core.Component", base.FullName)

	methods := widget.Methods()
	require.Len(t, methods, 1)
	assert.Equal(t, "Resize", methods[0].Name)
	assert.True(t, methods[0].Virtual)
	require.Len(t, methods[0].Params, 2)
	assert.Equal(t, "System.Int32", methods[0].Params[0].Type.Name)

	fields := widget.Fields()
	require.Len(t, fields, 1)
	require.NotNil(t, fields[0].ConstValue)
	assert.Equal(t, provider.LiteralNumber, fields[0].ConstValue.Kind)
	assert.Equal(t, "16", fields[0].ConstValue.Value)
}

func TestResolveWithinModule(t *testing.T) {
	dir := t.TempDir()
	path := writeDescriptor(t, dir, "Acme.Core.apim.json", coreDescriptor)

	handle, err := New().Open(path, nil)
	require.NoError(t, err)
	defer handle.Close()

	th, err := handle.Resolve(provider.TypeRef{FullName: "Acme.Core.Component"})
	require.NoError(t, err)
	assert.True(t, th.IsAbstract())

	_, err = handle.Resolve(provider.TypeRef{FullName: "Acme.Core.Missing"})
	require.Error(t, err)
	assert.True(t, cerrors.IsCode(err, cerrors.CodeLoadError))
}

func TestResolveAcrossSearchSet(t *testing.T) {
	dir := t.TempDir()
	corePath := writeDescriptor(t, dir, "Acme.Core.apim.json", coreDescriptor)
	basePath := writeDescriptor(t, dir, "Acme.Base.apim.json", baseDescriptor)

	handle, err := New().Open(corePath, []string{basePath})
	require.NoError(t, err)
	defer handle.Close()

	// qualified reference goes straight to the dependency
	th, err := handle.Resolve(provider.TypeRef{FullName: "Acme.Base.Resource", Module: "Acme.Base"})
	require.NoError(t, err)
	assert.True(t, th.IsSealed())

	// unqualified references are chased through the search set too
	th, err = handle.Resolve(provider.TypeRef{FullName: "Acme.Base.Resource"})
	require.NoError(t, err)
	assert.Equal(t, "Acme.Base.Resource", th.FullName())
}

func TestResolveMissingDependency(t *testing.T) {
	dir := t.TempDir()
	corePath := writeDescriptor(t, dir, "Acme.Core.apim.json", coreDescriptor)

	handle, err := New().Open(corePath, nil)
	require.NoError(t, err)
	defer handle.Close()

	_, err = handle.Resolve(provider.TypeRef{FullName: "Acme.Base.Resource", Module: "Acme.Base"})
	require.Error(t, err)
	assert.True(t, cerrors.IsCode(err, cerrors.CodeLoadError))
}

func TestOpenRejectsMalformedDescriptors(t *testing.T) {
	dir := t.TempDir()

	bad := writeDescriptor(t, dir, "Bad.apim.json", "{not json")
	_, err := New().Open(bad, nil)
	require.Error(t, err)
	assert.True(t, cerrors.IsCode(err, cerrors.CodeLoadError))

	unnamed := writeDescriptor(t, dir, "Unnamed.apim.json", `{"types": []}`)
	_, err = New().Open(unnamed, nil)
	require.Error(t, err)
	assert.True(t, cerrors.IsCode(err, cerrors.CodeLoadError))

	_, err = New().Open(filepath.Join(dir, "Absent.apim.json"), nil)
	require.Error(t, err)
	assert.True(t, cerrors.IsCode(err, cerrors.CodeLoadError))
}
