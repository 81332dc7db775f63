package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surface/internal/engine/provider"
)

const javaSource = `package com.acme.widgets;

public class Widget extends Component implements Drawable {
    public static final int MAX_DEPTH = 16;
    public String label;
    private int internalState;

    public Widget(String label) {}

    public void resize(int width, int height) {}
    public final String describe() { return label; }
    public static Widget create() { return new Widget(""); }
    private void hidden() {}
}

public interface Drawable {
    void draw(double scale);
}

public enum Color {
    RED, GREEN, BLUE
}

class PackagePrivate {}
`

const goSource = `package widgets

const MaxDepth = 16
const Greeting = "hello"

var DefaultName string

type Widget struct {
	Label  string
	Count  int
	hidden bool
}

func (w *Widget) Resize(width, height int) error { return nil }
func (w *Widget) Name() string                   { return w.Label }

type Drawable interface {
	Draw(scale float64)
}

func NewWidget(label string) *Widget { return &Widget{Label: label} }

func internalOnly() {}
`

func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func typeByName(t *testing.T, handle provider.ModuleHandle, fullName string) provider.TypeHandle {
	t.Helper()
	types, err := handle.ExportedTypes()
	require.NoError(t, err)
	for _, th := range types {
		if th.FullName() == fullName {
			return th
		}
	}
	t.Fatalf("type %s not extracted", fullName)
	return nil
}

func TestCanOpenByExtension(t *testing.T) {
	p := New()
	assert.True(t, p.CanOpen("Widget.java"))
	assert.True(t, p.CanOpen("widget.go"))
	assert.False(t, p.CanOpen("Widget.cs"))
	assert.False(t, p.CanOpen("Widget.apim.json"))
}

func TestJavaClassSurface(t *testing.T) {
	path := writeSource(t, "Widget.java", javaSource)
	handle, err := New().Open(path, nil)
	require.NoError(t, err)
	defer handle.Close()

	assert.Equal(t, "Widget", handle.Name())

	widget := typeByName(t, handle, "com.acme.widgets.Widget")
	assert.Equal(t, "com.acme.widgets", widget.Namespace())
	assert.False(t, widget.IsInterface())

	base, ok := widget.Base()
	require.True(t, ok)
	assert.Equal(t, "Component", base.FullName)
	require.Len(t, widget.Interfaces(), 1)
	assert.Equal(t, "Drawable", widget.Interfaces()[0].FullName)

	// private members never surface
	methods := widget.Methods()
	names := make(map[string]provider.MethodFact)
	for _, m := range methods {
		names[m.Name] = m
	}
	require.Len(t, names, 3)
	assert.NotContains(t, names, "hidden")

	resize := names["resize"]
	assert.True(t, resize.Virtual)
	require.Len(t, resize.Params, 2)
	assert.Equal(t, "System.Int32", resize.Params[0].Type.Name)
	assert.Equal(t, "width", resize.Params[0].Name)

	describe := names["describe"]
	assert.True(t, describe.Final)
	assert.False(t, describe.Virtual)
	assert.Equal(t, "System.String", describe.Returns.Name)

	create := names["create"]
	assert.True(t, create.Static)

	require.Len(t, widget.Constructors(), 1)

	fields := widget.Fields()
	require.Len(t, fields, 2)
	var maxDepth *provider.FieldFact
	for i := range fields {
		if fields[i].Name == "MAX_DEPTH" {
			maxDepth = &fields[i]
		}
	}
	require.NotNil(t, maxDepth)
	assert.True(t, maxDepth.Constant)
	require.NotNil(t, maxDepth.ConstValue)
	assert.Equal(t, "16", maxDepth.ConstValue.Value)
}

func TestJavaInterfaceAndEnum(t *testing.T) {
	path := writeSource(t, "Widget.java", javaSource)
	handle, err := New().Open(path, nil)
	require.NoError(t, err)
	defer handle.Close()

	drawable := typeByName(t, handle, "com.acme.widgets.Drawable")
	assert.True(t, drawable.IsInterface())
	require.Len(t, drawable.Methods(), 1)
	assert.True(t, drawable.Methods()[0].Abstract)
	assert.Equal(t, "System.Double", drawable.Methods()[0].Params[0].Type.Name)

	color := typeByName(t, handle, "com.acme.widgets.Color")
	assert.True(t, color.IsEnum())
	fields := color.Fields()
	require.Len(t, fields, 3)
	assert.Equal(t, "RED", fields[0].Name)
	assert.Equal(t, "0", fields[0].ConstValue.Value)
	assert.Equal(t, "BLUE", fields[2].Name)
	assert.Equal(t, "2", fields[2].ConstValue.Value)

	// package-private types never surface
	types, err := handle.ExportedTypes()
	require.NoError(t, err)
	for _, th := range types {
		assert.NotEqual(t, "com.acme.widgets.PackagePrivate", th.FullName())
	}
}

func TestGoStructSurface(t *testing.T) {
	path := writeSource(t, "widgets.go", goSource)
	handle, err := New().Open(path, nil)
	require.NoError(t, err)
	defer handle.Close()

	widget := typeByName(t, handle, "widgets.Widget")
	assert.True(t, widget.IsValueType())

	fields := widget.Fields()
	require.Len(t, fields, 2)
	assert.Equal(t, "Label", fields[0].Name)
	assert.Equal(t, "System.String", fields[0].Type.Name)

	methods := widget.Methods()
	require.Len(t, methods, 2)
	byName := make(map[string]provider.MethodFact)
	for _, m := range methods {
		byName[m.Name] = m
	}
	resize := byName["Resize"]
	require.Len(t, resize.Params, 2)
	assert.Equal(t, "width", resize.Params[0].Name)
	assert.Equal(t, "System.Int64", resize.Params[0].Type.Name)
	assert.Equal(t, "error", resize.Returns.Name)
}

func TestGoInterfaceAndPackageLevel(t *testing.T) {
	path := writeSource(t, "widgets.go", goSource)
	handle, err := New().Open(path, nil)
	require.NoError(t, err)
	defer handle.Close()

	drawable := typeByName(t, handle, "widgets.Drawable")
	assert.True(t, drawable.IsInterface())
	require.Len(t, drawable.Methods(), 1)
	assert.Equal(t, "Draw", drawable.Methods()[0].Name)
	assert.Equal(t, "System.Double", drawable.Methods()[0].Params[0].Type.Name)

	holder := typeByName(t, handle, "widgets.Functions")
	assert.True(t, holder.IsAbstract())
	assert.True(t, holder.IsSealed())

	holderMethods := holder.Methods()
	var newWidget *provider.MethodFact
	for i := range holderMethods {
		if holderMethods[i].Name == "NewWidget" {
			newWidget = &holderMethods[i]
		}
	}
	require.NotNil(t, newWidget)
	assert.True(t, newWidget.Static)
	assert.Equal(t, "Widget", newWidget.Returns.Name)

	consts := holder.Fields()
	byName := make(map[string]provider.FieldFact)
	for _, f := range consts {
		byName[f.Name] = f
	}
	require.Contains(t, byName, "MaxDepth")
	assert.True(t, byName["MaxDepth"].Constant)
	assert.Equal(t, "16", byName["MaxDepth"].ConstValue.Value)
	require.Contains(t, byName, "Greeting")
	assert.Equal(t, "System.String", byName["Greeting"].Type.Name)
	require.Contains(t, byName, "DefaultName")
	assert.False(t, byName["DefaultName"].Constant)
}

func TestResolveAcrossSourceSearchSet(t *testing.T) {
	dir := t.TempDir()
	componentPath := filepath.Join(dir, "Component.java")
	widgetPath := filepath.Join(dir, "Widget.java")
	require.NoError(t, os.WriteFile(componentPath, []byte(`package com.acme.widgets;
public abstract class Component {
    public void draw(int depth) {}
}
`), 0o644))
	require.NoError(t, os.WriteFile(widgetPath, []byte(javaSource), 0o644))

	handle, err := New().Open(widgetPath, []string{componentPath})
	require.NoError(t, err)
	defer handle.Close()

	th, err := handle.Resolve(provider.TypeRef{FullName: "Component"})
	require.NoError(t, err)
	assert.True(t, th.IsAbstract())
	assert.Equal(t, "com.acme.widgets.Component", th.FullName())

	_, err = handle.Resolve(provider.TypeRef{FullName: "Missing"})
	require.Error(t, err)
}
