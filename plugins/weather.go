package plugins

import (
	"context"
	"fmt"
	"slices"

	"github.com/bjaus/monitor"
)

// WeatherConfig configures the weather conversation.
type WeatherConfig struct {
	// Cities lists the supported cities. Defaults to 上海 and 北京.
	Cities []string

	// Forecast renders the answer. The default is a placeholder sentence.
	Forecast func(ctx context.Context, city, day string) (string, error)
}

// Weather asks for a city and a day, then answers with a forecast:
//
//	/天气           -> 你想查询哪个城市的天气呢？
//	火星            -> 你想查询的城市暂不支持，请重新输入！
//	上海            -> 你想查询几号的？
//	明天            -> 上海明天的天气是...
//
// Both values may be given up front: "/天气 上海 明天".
func Weather(r *monitor.Router, cfg WeatherConfig) *monitor.Definition {
	if len(cfg.Cities) == 0 {
		cfg.Cities = []string{"上海", "北京"}
	}
	if cfg.Forecast == nil {
		cfg.Forecast = func(_ context.Context, city, day string) (string, error) {
			return fmt.Sprintf("%s%s的天气是...", city, day), nil
		}
	}

	return r.OnCommand(monitor.ChatAny, monitor.Cmd("天气"), nil,
		monitor.Module("weather"),
		monitor.Priority(2),
		monitor.Block(true),
	).
		Handle(func(_ context.Context, _ *monitor.Matcher, msg *monitor.Message, st *monitor.State) error {
			args := msg.ArgFields(st)
			if len(args) > 0 {
				st.Set("city", args[0])
			}
			if len(args) > 1 {
				st.Set("day", args[1])
			}
			return nil
		}).
		Got("city", "你想查询哪个城市的天气呢？", nil, func(ctx context.Context, m *monitor.Matcher, _ *monitor.Message, st *monitor.State) error {
			if !slices.Contains(cfg.Cities, st.String("city")) {
				st.Delete("city")
				return m.Reject(ctx, "你想查询的城市暂不支持，请重新输入！")
			}
			return nil
		}).
		Got("day", "你想查询几号的？", nil, func(ctx context.Context, m *monitor.Matcher, _ *monitor.Message, st *monitor.State) error {
			text, err := cfg.Forecast(ctx, st.String("city"), st.String("day"))
			if err != nil {
				return fmt.Errorf("forecast: %w", err)
			}
			return m.Finish(ctx, text)
		})
}
