package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"surface/internal/core/ports"
	apimodel "surface/internal/engine/model"
	"surface/internal/inspector"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

const uiCallTimeout = 15 * time.Second

type item struct {
	title, desc string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type panelMode int

const (
	panelPackages panelMode = iota
	panelTypes
	panelDetail
)

type model struct {
	svc       *inspector.Service
	cacheRoot string

	packageList list.Model
	typeList    list.Model
	mode        panelMode

	packages   []ports.PackageInfo
	types      []apimodel.TypeSummary
	module     string
	target     string
	detail     *apimodel.TypeModel
	lastUpdate time.Time
	errText    string
}

type packagesMsg struct {
	packages []ports.PackageInfo
	err      error
}

type typesMsg struct {
	target string
	module string
	types  []apimodel.TypeSummary
	err    error
}

type detailMsg struct {
	detail *apimodel.TypeModel
	err    error
}

type refreshMsg struct{}

func (m model) Init() tea.Cmd {
	return loadPackages(m.svc)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.filtering() {
			break
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			return m, loadPackages(m.svc)
		case "esc":
			switch m.mode {
			case panelDetail:
				m.mode = panelTypes
			case panelTypes:
				m.mode = panelPackages
			}
			m.errText = ""
			return m, nil
		case "enter":
			return m.drillDown()
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		width := msg.Width - h
		height := msg.Height - v - 6
		if height < 5 {
			height = 5
		}
		m.packageList.SetSize(width, height)
		m.typeList.SetSize(width, height)
	case refreshMsg:
		return m, loadPackages(m.svc)
	case packagesMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
			break
		}
		m.errText = ""
		m.packages = msg.packages
		m.lastUpdate = time.Now()

		items := make([]list.Item, 0, len(m.packages))
		for _, p := range m.packages {
			items = append(items, item{
				title: p.ID,
				desc:  "versions: " + strings.Join(p.Versions, ", "),
			})
		}
		m.packageList.SetItems(items)
	case typesMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
			break
		}
		m.errText = ""
		m.types = msg.types
		m.module = msg.module
		m.target = msg.target
		m.mode = panelTypes

		items := make([]list.Item, 0, len(m.types))
		for _, t := range m.types {
			items = append(items, item{
				title: t.FullName,
				desc:  string(t.Kind),
			})
		}
		m.typeList.SetItems(items)
	case detailMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
			break
		}
		m.errText = ""
		m.detail = msg.detail
		m.mode = panelDetail
	}

	var cmd tea.Cmd
	switch m.mode {
	case panelPackages:
		m.packageList, cmd = m.packageList.Update(msg)
	case panelTypes:
		m.typeList, cmd = m.typeList.Update(msg)
	}
	return m, cmd
}

func (m model) drillDown() (tea.Model, tea.Cmd) {
	switch m.mode {
	case panelPackages:
		idx := m.packageList.Index()
		if idx < 0 || idx >= len(m.packages) {
			return m, nil
		}
		return m, loadTypes(m.svc, m.packages[idx].ID)
	case panelTypes:
		idx := m.typeList.Index()
		if idx < 0 || idx >= len(m.types) {
			return m, nil
		}
		return m, loadDetail(m.svc, m.target, m.types[idx].FullName)
	}
	return m, nil
}

func (m model) filtering() bool {
	switch m.mode {
	case panelPackages:
		return m.packageList.FilterState() == list.Filtering
	case panelTypes:
		return m.typeList.FilterState() == list.Filtering
	}
	return false
}

func (m model) View() string {
	status := statusStyle.Render(fmt.Sprintf("Last update: %v | %d packages | %s",
		m.lastUpdate.Format("15:04:05"), len(m.packages), m.cacheRoot))

	header := fmt.Sprintf("%s\n%s\n", titleStyle("Package Surface Browser"), status)
	help := renderHelp(m.mode)

	var body string
	switch m.mode {
	case panelPackages:
		body = m.packageList.View()
	case panelTypes:
		body = successStyle.Render("Module: "+m.module) + "\n\n" + m.typeList.View()
	case panelDetail:
		body = renderDetail(m.detail)
	}
	if m.errText != "" {
		body += "\n\n" + errorStyle.Render(m.errText)
	}

	return docStyle.Render(header + "\n" + help + "\n\n" + body)
}

func renderHelp(mode panelMode) string {
	keys := "Keys: / filter | enter open | r reload | q quit"
	if mode != panelPackages {
		keys = "Keys: / filter | enter open | esc back | q quit"
	}
	return statusStyle.Render(keys)
}

func renderDetail(tm *apimodel.TypeModel) string {
	if tm == nil {
		return statusStyle.Render("No type selected.")
	}
	return formatTypeModel(tm)
}

func initialModel(svc *inspector.Service, cacheRoot string) model {
	packageList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	packageList.Title = "Cached Packages"
	packageList.SetShowStatusBar(false)
	packageList.SetFilteringEnabled(true)

	typeList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	typeList.Title = "Exported Types"
	typeList.SetShowStatusBar(false)
	typeList.SetFilteringEnabled(true)

	return model{
		svc:         svc,
		cacheRoot:   cacheRoot,
		packageList: packageList,
		typeList:    typeList,
		mode:        panelPackages,
		lastUpdate:  time.Now(),
	}
}

func loadPackages(svc *inspector.Service) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), uiCallTimeout)
		defer cancel()

		var all []ports.PackageInfo
		token := ""
		for {
			res, err := svc.ListPackages(ctx, ports.ListPackagesRequest{PageToken: token})
			if err != nil {
				return packagesMsg{err: err}
			}
			all = append(all, res.Packages...)
			if res.NextPageToken == "" {
				return packagesMsg{packages: all}
			}
			token = res.NextPageToken
		}
	}
}

func loadTypes(svc *inspector.Service, packageID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), uiCallTimeout)
		defer cancel()

		var all []apimodel.TypeSummary
		token := ""
		module := ""
		for {
			res, err := svc.ListTypes(ctx, ports.ListTypesRequest{Package: packageID, PageToken: token})
			if err != nil {
				return typesMsg{err: err}
			}
			module = res.Module
			all = append(all, res.Types...)
			if res.NextPageToken == "" {
				return typesMsg{target: packageID, module: module, types: all}
			}
			token = res.NextPageToken
		}
	}
}

func loadDetail(svc *inspector.Service, packageID, typeName string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), uiCallTimeout)
		defer cancel()

		tm, err := svc.GetTypeDefinition(ctx, ports.GetTypeRequest{Package: packageID, TypeName: typeName})
		if err != nil {
			return detailMsg{err: err}
		}
		return detailMsg{detail: tm}
	}
}

func runUI(app *App) error {
	m := initialModel(app.Service, app.Config.Cache.Root)
	p := tea.NewProgram(m, tea.WithAltScreen())

	app.SetRefreshHandler(func() {
		p.Send(refreshMsg{})
	})

	_, err := p.Run()
	return err
}
