package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/northbridge-labs/cheevos/internal/client"
	"github.com/northbridge-labs/cheevos/internal/config"
	"github.com/northbridge-labs/cheevos/internal/console"
	"github.com/northbridge-labs/cheevos/internal/log"
	"github.com/northbridge-labs/cheevos/internal/runtime"
	"github.com/northbridge-labs/cheevos/internal/server"
	"github.com/northbridge-labs/cheevos/internal/ui/colorize"
)

const tickInterval = 100 * time.Millisecond

// counterAddress is where the demo's fake frame counter lives in the
// console's RAM window; nothing in the loaded program actually
// increments it (the built-in code is a handful of NOPs), so the demo
// loop pokes it directly each tick to give the achievement set
// something to react to.
const counterAddress = 0x0010

// demoAchievements is a tiny built-in set of two plain counter
// thresholds and a Measured progress achievement, in the classic
// RetroAchievements DSL text spec §4.3 defines.
var demoAchievements = []struct {
	id, points int
	title      string
	mem        string
}{
	{1, 5, "First Steps", "0xH0010>=10"},
	{2, 10, "Halfway There", "0xH0010>=50"},
	{3, 25, "Century", "M:0xH0010>=100"},
}

var demoRichPresence = "Display:\n0xH0010>=100?Counter maxed out\n@Value(0xH0010) frames in\n"

func demoPatchJSON() []byte {
	type achievement struct {
		ID          uint32 `json:"ID"`
		Title       string `json:"Title"`
		Description string `json:"Description"`
		MemAddr     string `json:"MemAddr"`
		Points      int    `json:"Points"`
		Flags       int    `json:"Flags"`
	}
	var achievements []achievement
	for _, a := range demoAchievements {
		achievements = append(achievements, achievement{
			ID: uint32(a.id), Title: a.title, MemAddr: a.mem, Points: a.points, Flags: 3,
		})
	}

	payload := map[string]any{
		"Success": true,
		"PatchData": map[string]any{
			"ID":                1,
			"Title":             "cheevo-demo built-in game",
			"ConsoleID":         7,
			"Achievements":      achievements,
			"Leaderboards":      []any{},
			"RichPresencePatch": demoRichPresence,
		},
	}
	body, _ := json.Marshal(payload)
	return body
}

// demoCaller answers every server.API the demo needs with a canned
// success response, so the demo runs without network access or
// credentials (spec §4.8's Caller collaborator, stood up here as a
// self-contained fake rather than a real transport.Transport).
func demoCaller() server.Caller {
	return server.CallerFunc(func(ctx context.Context, req server.Request) (server.Response, error) {
		switch req.API {
		case server.APIGameID:
			return server.Response{Status: 200, Body: []byte(`{"Success":true,"GameID":1}`)}, nil
		case server.APIPatch:
			return server.Response{Status: 200, Body: demoPatchJSON()}, nil
		case server.APIUnlocks:
			return server.Response{Status: 200, Body: []byte(`{"Success":true,"UserUnlocks":[]}`)}, nil
		default:
			return server.Response{Status: 200, Body: []byte(`{"Success":true}`)}, nil
		}
	})
}

// tinyProgram is a handful of ARM64 NOPs: the demo doesn't need the
// loaded code to do anything useful, only to give console.Step a real
// instruction stream to execute once per tick.
var tinyProgram = func() []byte {
	nop := []byte{0x1f, 0x20, 0x03, 0xd5} // NOP
	var code []byte
	for i := 0; i < 64; i++ {
		code = append(code, nop...)
	}
	return code
}()

type frameMsg time.Time

// centuryTarget is the measured-value target of the "Century" achievement
// (spec §4.5's Measured operand), used only to drive this demo's visible
// progress bar toward it.
const centuryTarget = 100

type demoModel struct {
	cons   *console.Console
	client *client.Client
	cfg    config.RuntimeConfig
	prog   progress.Model

	counter uint32
	events  []string
	err     error
}

func newDemoModel(cfg config.RuntimeConfig) (*demoModel, error) {
	cons, err := console.New(cfg.ConsoleID())
	if err != nil {
		return nil, fmt.Errorf("cheevo-demo: %w", err)
	}
	if err := cons.LoadProgram(tinyProgram); err != nil {
		cons.Close()
		return nil, err
	}

	c := client.New(demoCaller(), log.NewNop())
	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 40
	m := &demoModel{cons: cons, client: c, cfg: cfg, prog: prog}

	c.SetEventHandler(m.onEvent)
	c.SetHardcoreEnabled(cfg.Hardcore)

	if err := c.IdentifyAndLoadGame(context.Background(), cfg.ConsoleID(), "demo", cons); err != nil {
		cons.Close()
		return nil, err
	}

	return m, nil
}

func (m *demoModel) onEvent(ev runtime.Event) {
	switch ev.Kind {
	case runtime.EventTriggered:
		m.events = append(m.events, fmt.Sprintf("unlocked achievement #%d", ev.AchievementID))
	case runtime.EventChallengeIndicatorShow:
		m.events = append(m.events, fmt.Sprintf("achievement #%d in progress", ev.AchievementID))
	case runtime.EventGameCompleted:
		m.events = append(m.events, "all achievements unlocked!")
	}
	if len(m.events) > 8 {
		m.events = m.events[len(m.events)-8:]
	}
}

func (m *demoModel) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m *demoModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.prog.Width = msg.Width - 4
		if m.prog.Width > 60 {
			m.prog.Width = 60
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.client.Destroy()
			m.cons.Close()
			return m, tea.Quit
		case "r":
			m.counter = 0
			m.client.Reset()
		}
		return m, nil

	case frameMsg:
		m.counter++
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], m.counter)
		m.cons.WriteMemory(counterAddress, buf[:])
		m.cons.Step()
		m.client.DoFrame()
		return m, tick()

	default:
		return m, nil
	}
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

func (m *demoModel) View() string {
	var b strings.Builder
	fmt.Fprintln(&b, headerStyle.Render("cheevo-demo"))
	fmt.Fprintf(&b, "frame %d  counter %s  next: %s\n\n", m.counter, colorize.Address(m.counter), m.cons.CurrentInstruction())

	fmt.Fprintln(&b, headerStyle.Render("Century progress"))
	percent := float64(m.counter) / float64(centuryTarget)
	if percent > 1 {
		percent = 1
	}
	fmt.Fprintln(&b, m.prog.ViewAs(percent))
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, headerStyle.Render("events"))
	if len(m.events) == 0 {
		fmt.Fprintln(&b, dimStyle.Render("(none yet)"))
	}
	for _, e := range m.events {
		fmt.Fprintln(&b, "  "+e)
	}

	fmt.Fprintln(&b, "\n"+dimStyle.Render("q to quit, r to reset"))
	return b.String()
}
