// File: cmd/spcat/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// spcat is a command-line peer for SP sockets, in the spirit of
// nanocat: open a socket of any protocol, attach endpoints, then pump
// or drain messages. Useful for poking at deployed services and for
// quick interop checks between transports.

package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/momentics/hioload-sp/api"
	"github.com/momentics/hioload-sp/sp"
)

type config struct {
	Protocol  string        `yaml:"protocol"`
	Dial      []string      `yaml:"dial"`
	Listen    []string      `yaml:"listen"`
	Data      string        `yaml:"data"`
	Count     int           `yaml:"count"`
	Interval  time.Duration `yaml:"interval"`
	Timeout   time.Duration `yaml:"timeout"`
	Subscribe []string      `yaml:"subscribe"`
	Verbose   bool          `yaml:"verbose"`
}

var protocols = map[string]api.Protocol{
	"pair":       api.Pair0,
	"pub":        api.Pub0,
	"sub":        api.Sub0,
	"req":        api.Req0,
	"rep":        api.Rep0,
	"push":       api.Push0,
	"pull":       api.Pull0,
	"surveyor":   api.Surveyor0,
	"respondent": api.Respondent0,
	"bus":        api.Bus0,
}

func main() {
	cfg := config{Count: 1, Timeout: 2 * time.Second}
	var cfgFile string

	root := &cobra.Command{
		Use:          "spcat",
		Short:        "Command-line SP socket peer",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile != "" {
				raw, err := os.ReadFile(cfgFile)
				if err != nil {
					return err
				}
				if err := yaml.Unmarshal(raw, &cfg); err != nil {
					return fmt.Errorf("parse %s: %w", cfgFile, err)
				}
			}
			if cfg.Verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
			return run(&cfg)
		},
	}

	f := root.Flags()
	f.StringVarP(&cfg.Protocol, "protocol", "p", "", "protocol: "+strings.Join(protoNames(), ", "))
	f.StringArrayVarP(&cfg.Dial, "dial", "d", nil, "endpoint URL to dial (repeatable)")
	f.StringArrayVarP(&cfg.Listen, "listen", "l", nil, "endpoint URL to listen on (repeatable)")
	f.StringVarP(&cfg.Data, "data", "D", "", "payload to send; empty means receive-only")
	f.IntVarP(&cfg.Count, "count", "n", cfg.Count, "messages to send, 0 for unlimited")
	f.DurationVarP(&cfg.Interval, "interval", "i", 0, "delay between sends")
	f.DurationVarP(&cfg.Timeout, "timeout", "t", cfg.Timeout, "receive timeout")
	f.StringArrayVar(&cfg.Subscribe, "subscribe", nil, "topic prefix for sub sockets (repeatable)")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", false, "debug logging")
	f.StringVarP(&cfgFile, "config", "c", "", "YAML config file; flags override it")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func protoNames() []string {
	names := make([]string, 0, len(protocols))
	for n := range protocols {
		names = append(names, n)
	}
	return names
}

func run(cfg *config) error {
	proto, ok := protocols[cfg.Protocol]
	if !ok {
		return fmt.Errorf("unknown protocol %q", cfg.Protocol)
	}
	if len(cfg.Dial) == 0 && len(cfg.Listen) == 0 {
		return fmt.Errorf("at least one --dial or --listen endpoint required")
	}

	s, err := sp.Open(proto)
	if err != nil {
		return err
	}
	defer s.Close()

	if cfg.Timeout > 0 {
		s.SetOption(api.OptRecvTimeout, cfg.Timeout)
	}
	for _, topic := range cfg.Subscribe {
		if err := s.SetOption(api.OptSubscribe, topic); err != nil {
			return fmt.Errorf("subscribe %q: %w", topic, err)
		}
	}
	if proto == api.Sub0 && len(cfg.Subscribe) == 0 {
		// Match everything rather than silently nothing.
		s.SetOption(api.OptSubscribe, "")
	}

	for _, url := range cfg.Listen {
		if err := s.Listen(url); err != nil {
			return fmt.Errorf("listen %s: %w", url, err)
		}
		logrus.WithField("url", url).Debug("listening")
	}
	for _, url := range cfg.Dial {
		if _, err := s.DialFlags(url, api.FlagSynch); err != nil {
			return fmt.Errorf("dial %s: %w", url, err)
		}
		logrus.WithField("url", url).Debug("connected")
	}

	switch proto {
	case api.Req0:
		return loopSendRecv(s, cfg, true)
	case api.Surveyor0:
		return loopSurvey(s, cfg)
	case api.Rep0, api.Respondent0:
		return loopRespond(s, cfg)
	case api.Pub0, api.Push0:
		return loopSend(s, cfg)
	case api.Sub0, api.Pull0:
		return loopRecv(s, cfg)
	default: // pair, bus
		if cfg.Data != "" {
			return loopSendRecv(s, cfg, false)
		}
		return loopRecv(s, cfg)
	}
}

func emit(b []byte) { fmt.Printf("%s\n", b) }

func loopSend(s sp.Socket, cfg *config) error {
	for i := 0; cfg.Count == 0 || i < cfg.Count; i++ {
		if err := s.Send([]byte(cfg.Data), 0); err != nil {
			return err
		}
		time.Sleep(cfg.Interval)
	}
	return nil
}

func loopRecv(s sp.Socket, cfg *config) error {
	for i := 0; cfg.Count == 0 || i < cfg.Count; i++ {
		b, err := s.Recv(0)
		if err != nil {
			return err
		}
		emit(b)
	}
	return nil
}

func loopSendRecv(s sp.Socket, cfg *config, strict bool) error {
	for i := 0; cfg.Count == 0 || i < cfg.Count; i++ {
		if err := s.Send([]byte(cfg.Data), 0); err != nil {
			return err
		}
		b, err := s.Recv(0)
		if err != nil {
			if !strict && err == api.ErrTimedOut {
				continue
			}
			return err
		}
		emit(b)
		time.Sleep(cfg.Interval)
	}
	return nil
}

// loopSurvey sends each survey and prints every answer that arrives
// before the survey deadline.
func loopSurvey(s sp.Socket, cfg *config) error {
	s.SetOption(api.OptSurveyTime, cfg.Timeout)
	for i := 0; cfg.Count == 0 || i < cfg.Count; i++ {
		if err := s.Send([]byte(cfg.Data), 0); err != nil {
			return err
		}
		for {
			b, err := s.Recv(0)
			if err != nil {
				break
			}
			emit(b)
		}
		time.Sleep(cfg.Interval)
	}
	return nil
}

// loopRespond answers every inbound request with the configured data,
// or echoes the request when none is set.
func loopRespond(s sp.Socket, cfg *config) error {
	for i := 0; cfg.Count == 0 || i < cfg.Count; i++ {
		b, err := s.Recv(0)
		if err != nil {
			return err
		}
		emit(b)
		reply := b
		if cfg.Data != "" {
			reply = []byte(cfg.Data)
		}
		if err := s.Send(reply, 0); err != nil {
			return err
		}
	}
	return nil
}
