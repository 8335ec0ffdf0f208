package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Minapak/SwiftQuantum/internal/ibmcloud"
	"github.com/Minapak/SwiftQuantum/internal/quantum"
)

func newBackendsCmd() *cobra.Command {
	var operationalOnly bool

	cmd := &cobra.Command{
		Use:   "backends",
		Short: "List available quantum backends",
		Long:  "Authenticates, locates the service instance, and prints the backend catalog.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := newLogger()

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			apiKey, err := cfg.ResolveAPIKey()
			if err != nil {
				return err
			}

			cloud := ibmcloud.NewClient(
				ibmcloud.WithTokenURL(cfg.Endpoints.TokenURL),
				ibmcloud.WithResourceControllerURL(cfg.Endpoints.ResourceControllerURL),
				ibmcloud.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout()}),
				ibmcloud.WithLogger(logger),
			)

			cred, err := cloud.ExchangeAPIKey(ctx, apiKey)
			if err != nil {
				return err
			}
			instance, err := cloud.LookupInstance(ctx, cred, cfg.ResourceTypeID)
			if err != nil {
				return err
			}

			rt := quantum.NewClient(cfg.Endpoints.QuantumAPIURL, cred.AccessToken, instance.CRN,
				quantum.WithAPIVersion(cfg.APIVersion),
				quantum.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout()}),
				quantum.WithLogger(logger),
			)

			backends, err := rt.ListBackends(ctx)
			if err != nil {
				return err
			}

			if len(backends) == 0 {
				fmt.Println("No backends available.")
				return nil
			}

			fmt.Printf("Instance: %s (%s)\n\n", instance.Name, instance.RegionID)
			fmt.Printf("%-20s %-8s %-13s %-8s %s\n", "NAME", "QUBITS", "OPERATIONAL", "PENDING", "PROCESSOR")
			fmt.Println(strings.Repeat("-", 70))
			for _, b := range backends {
				if operationalOnly && !b.Operational {
					continue
				}
				fmt.Printf("%-20s %-8d %-13t %-8d %s\n", b.Name, b.Qubits, b.Operational, b.PendingJobs, b.Processor)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&operationalOnly, "operational", false, "Show only operational backends")

	return cmd
}
