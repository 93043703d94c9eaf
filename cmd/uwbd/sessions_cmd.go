package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Ethereal-OS/packages-modules-Uwb/internal/config"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/eventloop"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/manager"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/session"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/uci"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/uci/mock"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Exercise the session manager against a mock transport and print the recently-closed diagnostic LRU",
	RunE:  runSessions,
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	transport := mock.New()
	mgr := manager.New(transport, logSink{}, permissiveOracle{}, cfg)
	defer mgr.Shutdown()

	ctx := context.Background()
	params := session.FiRaParams{}
	openReq := eventloop.OpenRequest{
		Handle:   1,
		ID:       1,
		Protocol: uci.ProtocolFiRa,
		Chip:     "default",
		Params:   &params,
	}
	if err := mgr.OpenRanging(ctx, openReq); err != nil {
		return fmt.Errorf("demo open: %w", err)
	}
	if err := mgr.Close(ctx, eventloop.DeinitRequest{Handle: 1}); err != nil {
		return fmt.Errorf("demo close: %w", err)
	}

	records := mgr.RecentlyClosed()
	if len(records) == 0 {
		fmt.Println("no recently-closed sessions")
		return nil
	}

	header := color.New(color.Bold)
	header.Println("HANDLE\tSESSION ID\tPROTOCOL\tREASON")
	for _, r := range records {
		fmt.Printf("%#x\t%d\t%s\t%s\n", r.Handle, r.ID, r.Protocol, r.Reason)
	}
	return nil
}
