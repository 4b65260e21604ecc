package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"itinerary-voice-chat/internal/chat"
	"itinerary-voice-chat/internal/config"
	"itinerary-voice-chat/internal/console"
	"itinerary-voice-chat/internal/itinerary"
	"itinerary-voice-chat/internal/speech"
)

func main() {
	cfg := config.Load()
	out := console.NewRenderer(os.Stdout, os.Getenv("NO_COLOR") == "" && os.Getenv("TERM") != "dumb")

	var synth speech.Synthesizer
	if cfg.OpenAIAPIKey != "" {
		if p := speech.NewCommandPlayer(cfg.AudioPlayer); p != nil && p.Available() {
			synth = speech.NewCloudSynthesizer(openai.NewClient(cfg.OpenAIAPIKey), cfg.TTSModel, p)
		} else {
			log.Printf("[speech] audio player %q not found; speech output disabled", cfg.AudioPlayer)
		}
	}
	speechCfg := speech.DefaultConfig()
	speechCfg.PreferredVoice = cfg.TTSVoice
	// terminal input has no microphone path
	bridge := speech.NewBridge(synth, nil, nil, speechCfg)
	defer bridge.Close()
	if notice := bridge.Support().Notice(); notice != "" {
		out.Notice(notice)
	}
	bridge.DiscoverVoices(func(v speech.Voice, ok bool) {
		if ok {
			log.Printf("[speech] using voice %s (%s)", v.Name, v.Lang)
		}
	})
	bridge.SetAutoRead(cfg.AutoRead)

	var ctrl *chat.Controller
	ctrl = chat.NewController(chat.Options{
		Backend:     chat.NewHTTPBackend(cfg.ItineraryAPIURL, uuid.NewString(), cfg.WebhookTimeout+5*time.Second),
		Speaker:     bridge,
		MaxMessages: cfg.ChatHistoryLimit,
		OnAppend: func(m chat.Message) {
			if m.Role == chat.RoleUser {
				return
			}
			v, _ := ctrl.Viewer(m.ID)
			out.Message(m, v)
		},
		OnPending: func(p bool) {
			if p {
				out.Notice("thinking...")
			}
		},
	})

	fmt.Println("Plan a trip. Type /help for commands.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		cmd, err := console.ParseCommand(scanner.Text())
		if err != nil {
			out.Notice(err.Error())
			continue
		}
		if cmd.Kind == console.CmdQuit {
			break
		}
		run(cmd, ctrl, bridge, out)
	}
	bridge.Cancel()
}

func run(cmd console.Command, ctrl *chat.Controller, bridge *speech.Bridge, out *console.Renderer) {
	switch cmd.Kind {
	case console.CmdSend:
		if _, err := ctrl.Submit(context.Background(), cmd.Text); err != nil && !errors.Is(err, chat.ErrEmptyInput) {
			out.Notice(err.Error())
		}
	case console.CmdNextDay, console.CmdPrevDay:
		v, ok := latestViewer(ctrl, out)
		if !ok {
			return
		}
		var moved bool
		if cmd.Kind == console.CmdNextDay {
			moved = v.Next()
		} else {
			moved = v.Prev()
		}
		if !moved {
			out.Notice("no more days in that direction")
			return
		}
		out.Day(v.Day())
	case console.CmdImage:
		v, ok := latestViewer(ctrl, out)
		if !ok {
			return
		}
		pos := cmd.Activity - 1
		if cmd.Forward {
			_, ok = v.NextImage(pos)
		} else {
			_, ok = v.PrevImage(pos)
		}
		if !ok {
			out.Notice(fmt.Sprintf("no activity %d on this day", cmd.Activity))
			return
		}
		out.Day(v.Day())
	case console.CmdAutoRead:
		if !bridge.Support().Synthesis {
			out.Notice("speech output is not available")
			return
		}
		bridge.SetAutoRead(cmd.On)
		if cmd.On {
			out.Notice("auto-read on")
		} else {
			out.Notice("auto-read off")
		}
	case console.CmdSay:
		msgs := ctrl.Messages()
		for i := len(msgs) - 1; i >= 0; i-- {
			if msgs[i].Role != chat.RoleUser {
				if err := bridge.Speak(chat.SpokenText(msgs[i])); err != nil {
					out.Notice("speech output is not available")
				}
				return
			}
		}
		out.Notice("nothing to read yet")
	case console.CmdPause:
		bridge.Pause()
	case console.CmdResume:
		bridge.Resume()
	case console.CmdStop:
		bridge.Cancel()
	case console.CmdHelp:
		fmt.Println(console.Help)
	}
}

func latestViewer(ctrl *chat.Controller, out *console.Renderer) (*itinerary.Viewer, bool) {
	_, v, ok := ctrl.LatestViewer()
	if !ok {
		out.Notice("no itinerary yet")
	}
	return v, ok
}
