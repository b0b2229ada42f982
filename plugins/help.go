package plugins

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/bjaus/monitor"
)

// Help lists the modules registered on r. It answers 菜单 and the aliases
// 功能 and 帮助.
func Help(r *monitor.Router) *monitor.Definition {
	return r.OnCommand(monitor.ChatAny, monitor.Cmd("菜单"), []monitor.Command{monitor.Cmd("功能"), monitor.Cmd("帮助")},
		monitor.Module("help"),
	).Handle(func(ctx context.Context, m *monitor.Matcher, _ *monitor.Message, _ *monitor.State) error {
		return m.Finish(ctx, menu(r.Registry()))
	})
}

func menu(reg *monitor.Registry) string {
	var modules []string
	for _, p := range reg.Priorities() {
		for _, def := range reg.Snapshot(p) {
			if mod := def.Module(); mod != "" && mod != "help" && !def.Temp() && !slices.Contains(modules, mod) {
				modules = append(modules, mod)
			}
		}
	}
	slices.Sort(modules)

	var b strings.Builder
	b.WriteString("当前功能：")
	for i, mod := range modules {
		b.WriteString("\n")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(mod)
	}
	return b.String()
}
