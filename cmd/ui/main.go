package main

import (
	"fmt"
	"image/color"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"gioui.org/app"
	"gioui.org/font"
	"gioui.org/font/gofont"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/text"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
)

var (
	apiBase = "/"
	theme   *material.Theme
)

// Pages
const (
	pageDashboard = iota
	pageTasks
	pageJournal
)

var views = []string{"active", "backlog", "ideas", "blocked", "hidden", "completed", "archive"}

var priorities = []string{"P0", "P1", "P2", ""}

var (
	grey   = color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF}
	orange = color.NRGBA{R: 0xFF, G: 0xA0, B: 0x00, A: 0xFF}
	blue   = color.NRGBA{R: 0x00, G: 0xA0, B: 0xFF, A: 0xFF}
	green  = color.NRGBA{R: 0x00, G: 0xC0, B: 0x00, A: 0xFF}
	red    = color.NRGBA{R: 0xFF, G: 0x40, B: 0x40, A: 0xFF}
)

type UI struct {
	window      *app.Window
	currentPage int
	currentView int

	// Nav buttons
	navDashboard widget.Clickable
	navTasks     widget.Clickable
	navJournal   widget.Clickable

	// Dashboard
	refreshBtn  widget.Clickable
	vacationBtn widget.Clickable
	dismissBtn  widget.Clickable

	// Tasks
	viewBtns      []widget.Clickable
	prioBtns      []widget.Clickable
	newPriority   int
	taskList      widget.List
	newTaskEditor widget.Editor
	createTaskBtn widget.Clickable
	rows          []taskRow
	clearFocusBtn widget.Clickable

	// Journal
	journalList widget.List

	// mu guards the fetched data below.
	mu      sync.Mutex
	status  Status
	items   []Item
	entries []Entry
	lastErr string
}

// taskRow holds the per-row action buttons.
type taskRow struct {
	done    widget.Clickable
	focus   widget.Clickable
	hide    widget.Clickable
	archive widget.Clickable
}

func main() {
	if base := os.Getenv("API_BASE"); base != "" {
		apiBase = base
	}

	theme = material.NewTheme()
	theme.Shaper = text.NewShaper(text.WithCollection(gofont.Collection()))
	theme.Palette.Bg = color.NRGBA{R: 0x12, G: 0x12, B: 0x12, A: 0xFF}
	theme.Palette.Fg = color.NRGBA{R: 0xE0, G: 0xE0, B: 0xE0, A: 0xFF}
	theme.Palette.ContrastBg = color.NRGBA{R: 0x30, G: 0x60, B: 0xA0, A: 0xFF}
	theme.Palette.ContrastFg = color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}

	ui := &UI{
		window:      new(app.Window),
		viewBtns:    make([]widget.Clickable, len(views)),
		prioBtns:    make([]widget.Clickable, len(priorities)),
		newPriority: 1,
	}
	ui.taskList.Axis = layout.Vertical
	ui.journalList.Axis = layout.Vertical
	ui.newTaskEditor.SingleLine = true
	ui.newTaskEditor.Submit = true

	go ui.pollData()

	go func() {
		w := ui.window
		w.Option(app.Title("tiertrack"))
		w.Option(app.Size(unit.Dp(1100), unit.Dp(760)))
		if err := ui.run(w); err != nil {
			log.Fatal(err)
		}
		os.Exit(0)
	}()
	app.Main()
}

func (ui *UI) run(w *app.Window) error {
	var ops op.Ops
	for {
		switch e := w.Event().(type) {
		case app.DestroyEvent:
			return e.Err
		case app.FrameEvent:
			gtx := app.NewContext(&ops, e)
			ui.handleClicks(gtx)
			ui.layout(gtx)
			e.Frame(gtx.Ops)
		}
	}
}

func (ui *UI) handleClicks(gtx layout.Context) {
	if ui.navDashboard.Clicked(gtx) {
		ui.currentPage = pageDashboard
	}
	if ui.navTasks.Clicked(gtx) {
		ui.currentPage = pageTasks
	}
	if ui.navJournal.Clicked(gtx) {
		ui.currentPage = pageJournal
	}
	if ui.refreshBtn.Clicked(gtx) {
		go ui.fetchAll()
	}
	if ui.vacationBtn.Clicked(gtx) {
		go ui.post("api/vacation/apply", "")
	}
	if ui.dismissBtn.Clicked(gtx) {
		go ui.post("api/vacation/dismiss", "")
	}
	if ui.clearFocusBtn.Clicked(gtx) {
		go ui.do("DELETE", "api/focus", "")
	}
	for i := range ui.viewBtns {
		if ui.viewBtns[i].Clicked(gtx) {
			ui.currentView = i
			go ui.fetchTasks()
		}
	}
	for i := range ui.prioBtns {
		if ui.prioBtns[i].Clicked(gtx) {
			ui.newPriority = i
		}
	}

	submitted := false
	for {
		ev, ok := ui.newTaskEditor.Update(gtx)
		if !ok {
			break
		}
		if _, ok := ev.(widget.SubmitEvent); ok {
			submitted = true
		}
	}
	if ui.createTaskBtn.Clicked(gtx) || submitted {
		title := strings.TrimSpace(ui.newTaskEditor.Text())
		if title != "" {
			go ui.createTask(title, priorities[ui.newPriority])
			ui.newTaskEditor.SetText("")
		}
	}

	ui.mu.Lock()
	items := ui.items
	ui.mu.Unlock()
	for i := range ui.rows {
		if i >= len(items) {
			break
		}
		id := items[i].ID
		r := &ui.rows[i]
		if r.done.Clicked(gtx) {
			if items[i].CompletedAt != nil {
				go ui.post(fmt.Sprintf("api/tasks/%d/uncomplete", id), "")
			} else {
				go ui.post(fmt.Sprintf("api/tasks/%d/complete", id), "")
			}
		}
		if r.focus.Clicked(gtx) {
			go ui.post(fmt.Sprintf("api/tasks/%d/focus", id), "")
		}
		if r.hide.Clicked(gtx) {
			go ui.post(fmt.Sprintf("api/tasks/%d/hide", id), `{"minutes":60}`)
		}
		if r.archive.Clicked(gtx) {
			go ui.do("PATCH", fmt.Sprintf("api/tasks/%d", id), fmt.Sprintf(`{"isArchived":%v}`, !items[i].IsArchived))
		}
	}
}

func (ui *UI) layout(gtx layout.Context) layout.Dimensions {
	return layout.Flex{Axis: layout.Horizontal}.Layout(gtx,
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return ui.layoutNav(gtx)
		}),
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			return layout.UniformInset(unit.Dp(16)).Layout(gtx, func(gtx layout.Context) layout.Dimensions {
				switch ui.currentPage {
				case pageTasks:
					return ui.layoutTasks(gtx)
				case pageJournal:
					return ui.layoutJournal(gtx)
				default:
					return ui.layoutDashboard(gtx)
				}
			})
		}),
	)
}

func (ui *UI) layoutNav(gtx layout.Context) layout.Dimensions {
	gtx.Constraints.Min.X = gtx.Dp(unit.Dp(180))
	gtx.Constraints.Max.X = gtx.Dp(unit.Dp(180))
	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return layout.Inset{Top: unit.Dp(16), Bottom: unit.Dp(16), Left: unit.Dp(12)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
				label := material.H6(theme, "tiertrack")
				label.Color = theme.Palette.ContrastFg
				return label.Layout(gtx)
			})
		}),
		layout.Rigid(navBtn(theme, &ui.navDashboard, "Dashboard", ui.currentPage == pageDashboard)),
		layout.Rigid(navBtn(theme, &ui.navTasks, "Tasks", ui.currentPage == pageTasks)),
		layout.Rigid(navBtn(theme, &ui.navJournal, "Journal", ui.currentPage == pageJournal)),
	)
}

func navBtn(th *material.Theme, btn *widget.Clickable, label string, active bool) layout.Widget {
	return func(gtx layout.Context) layout.Dimensions {
		return layout.Inset{Top: unit.Dp(2), Bottom: unit.Dp(2), Left: unit.Dp(8), Right: unit.Dp(8)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
			b := material.Button(th, btn, label)
			if active {
				b.Background = th.Palette.ContrastBg
			} else {
				b.Background = color.NRGBA{A: 0}
			}
			b.Color = th.Palette.Fg
			return b.Layout(gtx)
		})
	}
}

func smallBtn(btn *widget.Clickable, label string) layout.FlexChild {
	return layout.Rigid(func(gtx layout.Context) layout.Dimensions {
		return layout.Inset{Right: unit.Dp(6)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
			b := material.Button(theme, btn, label)
			b.TextSize = unit.Sp(12)
			b.Inset = layout.UniformInset(unit.Dp(6))
			return b.Layout(gtx)
		})
	})
}

func (ui *UI) layoutDashboard(gtx layout.Context) layout.Dimensions {
	ui.mu.Lock()
	st := ui.status
	lastErr := ui.lastErr
	ui.mu.Unlock()

	children := []layout.FlexChild{
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return material.H5(theme, "Dashboard").Layout(gtx)
		}),
		layout.Rigid(layout.Spacer{Height: unit.Dp(16)}.Layout),
	}
	for _, v := range views {
		line := fmt.Sprintf("%-10s %d", v, st.Counts[v])
		children = append(children, layout.Rigid(material.Body1(theme, line).Layout))
	}
	focus := "Focus: none"
	if st.FocusedTaskID != nil {
		focus = fmt.Sprintf("Focus: task %d", *st.FocusedTaskID)
	}
	children = append(children,
		layout.Rigid(material.Body1(theme, focus).Layout),
		layout.Rigid(material.Body1(theme, fmt.Sprintf("Journal entries: %d", st.Journal)).Layout),
		layout.Rigid(layout.Spacer{Height: unit.Dp(16)}.Layout),
	)
	if n := st.Nudge; n != nil {
		children = append(children,
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				label := material.Body1(theme, fmt.Sprintf("Nothing touched for %.0f hours. Take a %d day vacation?", n.InactivityHours, n.SuggestedDays))
				label.Color = orange
				return label.Layout(gtx)
			}),
			layout.Rigid(layout.Spacer{Height: unit.Dp(8)}.Layout),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return layout.Flex{}.Layout(gtx,
					smallBtn(&ui.vacationBtn, "Apply"),
					smallBtn(&ui.dismissBtn, "Dismiss"),
				)
			}),
			layout.Rigid(layout.Spacer{Height: unit.Dp(16)}.Layout),
		)
	}
	children = append(children, layout.Rigid(func(gtx layout.Context) layout.Dimensions {
		return material.Button(theme, &ui.refreshBtn, "Refresh").Layout(gtx)
	}))
	if lastErr != "" {
		children = append(children, layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			label := material.Caption(theme, lastErr)
			label.Color = red
			return label.Layout(gtx)
		}))
	}
	return layout.Flex{Axis: layout.Vertical, Spacing: layout.SpaceEnd}.Layout(gtx, children...)
}

func (ui *UI) layoutTasks(gtx layout.Context) layout.Dimensions {
	ui.mu.Lock()
	items := ui.items
	ui.mu.Unlock()
	for len(ui.rows) < len(items) {
		ui.rows = append(ui.rows, taskRow{})
	}

	var viewTabs []layout.FlexChild
	for i, v := range views {
		viewTabs = append(viewTabs, layout.Rigid(navBtn(theme, &ui.viewBtns[i], v, ui.currentView == i)))
	}
	var prioTabs []layout.FlexChild
	for i, p := range priorities {
		if p == "" {
			p = "idea"
		}
		prioTabs = append(prioTabs, layout.Rigid(navBtn(theme, &ui.prioBtns[i], p, ui.newPriority == i)))
	}

	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return layout.Flex{Alignment: layout.Middle}.Layout(gtx,
				layout.Flexed(1, material.H5(theme, "Tasks").Layout),
				smallBtn(&ui.clearFocusBtn, "Clear focus"),
			)
		}),
		layout.Rigid(layout.Spacer{Height: unit.Dp(8)}.Layout),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return layout.Flex{}.Layout(gtx, viewTabs...)
		}),
		layout.Rigid(layout.Spacer{Height: unit.Dp(8)}.Layout),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			row := append([]layout.FlexChild{
				layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
					return material.Editor(theme, &ui.newTaskEditor, "New task title...").Layout(gtx)
				}),
			}, prioTabs...)
			row = append(row,
				layout.Rigid(layout.Spacer{Width: unit.Dp(8)}.Layout),
				layout.Rigid(func(gtx layout.Context) layout.Dimensions {
					return material.Button(theme, &ui.createTaskBtn, "Create").Layout(gtx)
				}),
			)
			return layout.Flex{Alignment: layout.Middle}.Layout(gtx, row...)
		}),
		layout.Rigid(layout.Spacer{Height: unit.Dp(8)}.Layout),
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			return material.List(theme, &ui.taskList).Layout(gtx, len(items), func(gtx layout.Context, i int) layout.Dimensions {
				return ui.layoutTaskRow(gtx, items[i], &ui.rows[i])
			})
		}),
	)
}

func (ui *UI) layoutTaskRow(gtx layout.Context, it Item, r *taskRow) layout.Dimensions {
	var tags []string
	tagColor := grey
	if it.Focused {
		tags = append(tags, "focus")
		tagColor = blue
	}
	if it.Stale {
		tags = append(tags, "stale")
		tagColor = orange
	}
	if it.Blocked {
		tags = append(tags, fmt.Sprintf("blocked by %d", len(it.Blockers)))
		tagColor = red
	}
	if it.CompletedAt != nil {
		tags = append(tags, "done "+it.CompletedAt.Local().Format("Jan 2 15:04"))
		tagColor = green
	}
	if it.HiddenUntilAt != nil && it.HiddenUntilAt.After(time.Now()) {
		tags = append(tags, "hidden until "+it.HiddenUntilAt.Local().Format("15:04"))
	}
	prio := it.Priority
	if prio == "" {
		prio = "idea"
	}
	caption := fmt.Sprintf("#%d [%s] updated %s", it.ID, prio, it.UpdatedAt.Local().Format("Jan 2 15:04"))
	if len(tags) > 0 {
		caption += "  " + strings.Join(tags, ", ")
	}
	doneLabel := "Done"
	if it.CompletedAt != nil {
		doneLabel = "Reopen"
	}
	archiveLabel := "Archive"
	if it.IsArchived {
		archiveLabel = "Restore"
	}

	return layout.Inset{Bottom: unit.Dp(6)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Alignment: layout.Middle}.Layout(gtx,
			layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
				return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
					layout.Rigid(func(gtx layout.Context) layout.Dimensions {
						label := material.Body2(theme, it.Title)
						label.Font.Weight = font.Bold
						return label.Layout(gtx)
					}),
					layout.Rigid(func(gtx layout.Context) layout.Dimensions {
						if it.Status == "" {
							return layout.Dimensions{}
						}
						return material.Caption(theme, it.Status).Layout(gtx)
					}),
					layout.Rigid(func(gtx layout.Context) layout.Dimensions {
						label := material.Caption(theme, caption)
						label.Color = tagColor
						return label.Layout(gtx)
					}),
				)
			}),
			smallBtn(&r.done, doneLabel),
			smallBtn(&r.focus, "Focus"),
			smallBtn(&r.hide, "Hide 1h"),
			smallBtn(&r.archive, archiveLabel),
		)
	})
}

func (ui *UI) layoutJournal(gtx layout.Context) layout.Dimensions {
	ui.mu.Lock()
	entries := ui.entries
	ui.mu.Unlock()

	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return material.H5(theme, "Journal").Layout(gtx)
		}),
		layout.Rigid(layout.Spacer{Height: unit.Dp(8)}.Layout),
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			return material.List(theme, &ui.journalList).Layout(gtx, len(entries), func(gtx layout.Context, i int) layout.Dimensions {
				e := entries[i]
				return layout.Inset{Bottom: unit.Dp(4)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
					return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
						layout.Rigid(func(gtx layout.Context) layout.Dimensions {
							line := fmt.Sprintf("[%s] %s", e.Timestamp.Local().Format("Jan 2 15:04:05"), e.Type)
							if e.TaskID != 0 {
								line += fmt.Sprintf(" #%d", e.TaskID)
							}
							label := material.Body2(theme, line)
							label.Font.Weight = font.Bold
							return label.Layout(gtx)
						}),
						layout.Rigid(func(gtx layout.Context) layout.Dimensions {
							label := material.Caption(theme, shortHash(e.Hash))
							label.Color = grey
							return label.Layout(gtx)
						}),
					)
				})
			})
		}),
	)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12] + "..."
	}
	return h
}
