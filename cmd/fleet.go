package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/robotaxi/config"
	"github.com/kilianp07/robotaxi/core/command"
	"github.com/kilianp07/robotaxi/infra/mqtt"
)

var fleetTimeout time.Duration

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Talk to a running service over MQTT",
}

var fleetSendCmd = &cobra.Command{
	Use:     "send <kind> <count>",
	Short:   "Submit a fleet command, e.g. send add_taxi 3",
	Args:    cobra.ExactArgs(2),
	RunE:    runFleetSend,
	Example: "  robotaxi fleet send add_reservation 10\n  robotaxi fleet send remove_charger 1",
}

var fleetStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the last status snapshot",
	RunE:  runFleetStatus,
}

func init() {
	fleetCmd.PersistentFlags().DurationVar(&fleetTimeout, "timeout", 5*time.Second, "how long to wait for the service")
	fleetCmd.AddCommand(fleetSendCmd, fleetStatusCmd)
	rootCmd.AddCommand(fleetCmd)
}

func newOperator() (*mqtt.Operator, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if !cfg.MQTT.Enabled() {
		return nil, fmt.Errorf("mqtt.broker is not configured")
	}
	return mqtt.NewOperator(cfg.MQTT)
}

func runFleetSend(cmd *cobra.Command, args []string) error {
	count, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("count: %w", err)
	}
	c, err := command.Parse(args[0], count)
	if err != nil {
		return err
	}
	op, err := newOperator()
	if err != nil {
		return err
	}
	defer op.Close()
	ctx, cancel := context.WithTimeout(cmd.Context(), fleetTimeout)
	defer cancel()
	env, err := op.Send(ctx, c)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s queued %s x%d\n", env.ID, env.Command.Kind(), env.Command.Requested())
	return err
}

func runFleetStatus(cmd *cobra.Command, args []string) error {
	op, err := newOperator()
	if err != nil {
		return err
	}
	defer op.Close()
	ctx, cancel := context.WithTimeout(cmd.Context(), fleetTimeout)
	defer cancel()
	snap, err := op.Status(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}
