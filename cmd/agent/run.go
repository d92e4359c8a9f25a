package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"browserx/internal/application/port/input"
	"browserx/internal/domain/entity"
	"browserx/internal/infrastructure/env"
	"browserx/internal/infrastructure/sink"
)

func newRunCmd(flags *rootFlags) *cobra.Command {
	var noPlan bool
	local := map[string]string{
		"max-steps":  env.AgentMaxSteps,
		"step-delay": env.AgentStepDelay,
	}

	cmd := &cobra.Command{
		Use:   "run <goal>",
		Short: "Plan a goal and drive the browser until it is done",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			goal := strings.TrimSpace(strings.Join(args, " "))
			c, err := newContainer(cmd, flags, local, goal)
			if err != nil {
				return err
			}
			defer c.Close()

			console := c.Console()
			lines := sink.Multi(console, sink.Logger(c.Logger))

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			// first interrupt stops the run gracefully, a second one aborts it
			stop := entity.NewStopSignal()
			sigs := make(chan os.Signal, 2)
			signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigs)
			go func() {
				select {
				case <-sigs:
					lines.Log("Stop signal received. Halting agent...")
					stop.Stop()
				case <-ctx.Done():
					return
				}
				select {
				case <-sigs:
					cancel()
				case <-ctx.Done():
				}
			}()

			var plan *entity.Plan
			if !noPlan {
				lines.Log("Agent is thinking about a plan...")
				plan, err = c.Planner.WithSink(lines).CreatePlan(ctx, goal)
				if err != nil {
					return fmt.Errorf("failed to create plan: %w", err)
				}
				lines.Log(fmt.Sprintf("Plan: %s (strategy: %s)", plan.TaskSummary, plan.Strategy))
			}

			c.Logger.Info("Task started", "goal", goal)
			res, err := c.Runner.Run(ctx, input.RunRequest{
				Goal:        goal,
				Plan:        plan,
				Sink:        lines,
				Stop:        stop,
				Credentials: console,
				Human:       console,
			})
			if err != nil {
				if entity.IsUserStop(err) || entity.IsCancelled(err) {
					lines.Log("Agent execution has been stopped by the user.")
					return nil
				}
				c.Logger.Error("Task failed", "error", err)
				return err
			}

			c.Logger.Info("Task completed", "steps", res.Steps, "session", res.SessionID)
			fmt.Fprintln(cmd.OutOrStdout(), "\nFINAL ANSWER:")
			fmt.Fprintln(cmd.OutOrStdout(), res.Summary)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noPlan, "no-plan", false, "skip planning and start from a blank page")
	cmd.Flags().Int("max-steps", 0, "step budget of the run")
	cmd.Flags().Duration("step-delay", 0, "minimum delay between steps")
	return cmd
}

func newPlanCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <goal>",
		Short: "Print the plan the agent would follow for a goal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			goal := strings.TrimSpace(strings.Join(args, " "))
			c, err := newContainer(cmd, flags, nil, "")
			if err != nil {
				return err
			}
			defer c.Close()

			plan, err := c.Planner.WithSink(c.Console()).CreatePlan(cmd.Context(), goal)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(plan)
		},
	}
}
