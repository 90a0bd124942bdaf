// Package rulefile loads static handler definitions from a YAML (or any
// viper-supported) rules file, so the live proxy can run scripted
// scenarios without code.
package rulefile

import (
	"net/http"
	"time"

	"github.com/spf13/viper"

	"github.com/mockwire/mockwire/internal/errx"
	"github.com/mockwire/mockwire/pkg/api"
	"github.com/mockwire/mockwire/pkg/mock"
)

// Rule is one static handler definition.
type Rule struct {
	Name        string            `mapstructure:"name"`
	Method      string            `mapstructure:"method"`
	URL         string            `mapstructure:"url"`
	Status      int               `mapstructure:"status"`
	Headers     map[string]string `mapstructure:"headers"`
	Body        string            `mapstructure:"body"`
	DelayMS     int               `mapstructure:"delay_ms"`
	Passthrough bool              `mapstructure:"passthrough"`
}

// Load reads a rules file and compiles it into handlers, preserving file
// order so later rules shadow earlier ones per engine precedence.
func Load(path string) ([]mock.Handler, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errx.Wrap(api.ErrInvalidRuleFile, err)
	}

	var rules []Rule
	if err := v.UnmarshalKey("rules", &rules); err != nil {
		return nil, errx.Wrap(api.ErrInvalidRuleFile, err)
	}
	if len(rules) == 0 {
		return nil, errx.With(api.ErrInvalidRuleFile, " no rules in %s", path)
	}
	return Compile(rules)
}

// Compile turns rule definitions into handlers.
func Compile(rules []Rule) ([]mock.Handler, error) {
	handlers := make([]mock.Handler, 0, len(rules))
	for i, r := range rules {
		if r.URL == "" {
			return nil, errx.With(api.ErrInvalidRuleFile, " rule %d (%s): url is required", i, r.Name)
		}

		var respond mock.Responder
		if r.Passthrough {
			respond = mock.Forward
		} else {
			status := r.Status
			if status == 0 {
				status = http.StatusOK
			}
			header := http.Header{}
			for k, val := range r.Headers {
				header.Set(k, val)
			}
			respond = mock.Respond(&api.Response{
				StatusCode: status,
				Header:     header,
				Body:       []byte(r.Body),
			})
		}
		if r.DelayMS > 0 {
			respond = mock.Delay(time.Duration(r.DelayMS)*time.Millisecond, respond)
		}

		handlers = append(handlers, mock.Handle(r.Method, r.URL, respond))
	}
	return handlers, nil
}
