package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/md-rashed-zaman/appointbook/libs/config"
	"github.com/md-rashed-zaman/appointbook/libs/grpcx"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/grpcserver"
)

// newAvailabilityCommand queries a running server over gRPC and prints the snapshot.
func newAvailabilityCommand() *cobra.Command {
	var (
		addr       string
		businessID string
		at         string
	)
	cmd := &cobra.Command{
		Use:   "availability",
		Short: "Print today's provider availability from a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if businessID == "" {
				return fmt.Errorf("--business is required")
			}
			var asOf time.Time
			if at != "" {
				parsed, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at must be RFC3339: %w", err)
				}
				asOf = parsed
			}
			if addr == "" {
				addr = "localhost:" + config.String("GRPC_PORT", "9083")
			}

			conn, err := grpcx.Dial(addr, grpcx.DialOptions{})
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			out, err := grpcserver.NewClient(conn).GetTodayAvailability(ctx, businessID, asOf)
			if err != nil {
				return err
			}
			body, err := protojson.MarshalOptions{Multiline: true}.Marshal(out)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(body))
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "gRPC address (default localhost:$GRPC_PORT)")
	cmd.Flags().StringVar(&businessID, "business", "", "business id")
	cmd.Flags().StringVar(&at, "at", "", "RFC3339 instant to replay instead of now")
	return cmd
}
