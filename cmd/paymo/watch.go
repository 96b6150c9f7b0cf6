package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jcolombo/paymo/internal/events"
	"github.com/jcolombo/paymo/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:     "watch [entity]",
	Short:   "Stream create, update and delete events from the event bus",
	GroupID: "resources",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Events.NATSURL == "" {
			return fmt.Errorf("no event bus configured; set events.nats_url or PAYMO_EVENTS_NATS_URL")
		}

		topic := events.TopicAll
		if len(args) == 1 {
			registry, err := loadRegistry(cfg)
			if err != nil {
				return err
			}
			entity, err := resolveEntity(registry, args[0])
			if err != nil {
				return err
			}
			topic = events.EntityTopic(entity)
		}

		sub, err := events.NewNATSSubscriber(cfg.Events.NATSURL)
		if err != nil {
			return err
		}
		defer sub.Close()

		ch, cancel, err := sub.Subscribe(topic)
		if err != nil {
			return err
		}
		defer cancel()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		fmt.Fprintf(os.Stderr, "Watching %s (Ctrl+C to stop)\n", ui.RenderAccent(topic))
		for {
			select {
			case <-ctx.Done():
				if n := sub.Dropped(); n > 0 {
					fmt.Fprintf(os.Stderr, "%d events dropped while the terminal fell behind\n", n)
				}
				return nil
			case msg, ok := <-ch:
				if !ok {
					return nil
				}
				if jsonOutput {
					fmt.Println(string(msg.Data))
					continue
				}
				env, err := msg.Envelope()
				if err != nil {
					fmt.Fprintf(os.Stderr, "skipping event: %v\n", err)
					continue
				}
				fmt.Println(formatEvent(env))
			}
		}
	},
}

func formatEvent(env events.Envelope) string {
	ts := ui.RenderMuted(env.At.Local().Format("15:04:05"))
	ref := fmt.Sprintf("%s#%d", env.Entity, env.ID)
	switch env.Action {
	case events.ActionCreated:
		return fmt.Sprintf("%s %s %s", ts, ui.RenderSuccess(env.Action), ref)
	case events.ActionUpdated:
		keys := make([]string, 0, len(env.Changes))
		for k := range env.Changes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return fmt.Sprintf("%s %s %s %s", ts, ui.RenderAccent(env.Action), ref, ui.RenderMuted(strings.Join(keys, ",")))
	case events.ActionDeleted:
		return fmt.Sprintf("%s %s %s", ts, ui.RenderError(env.Action), ref)
	}
	return fmt.Sprintf("%s %s %s", ts, env.Action, ref)
}
