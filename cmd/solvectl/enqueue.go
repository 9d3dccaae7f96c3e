package main

import (
	"encoding/json"
	"fmt"
	"os"

	"autosolver/internal/app"
	"autosolver/internal/common"
	"autosolver/internal/common/security"
	"autosolver/internal/domain/model"
	"autosolver/internal/platform/config"
	"autosolver/internal/platform/database"
	"autosolver/internal/platform/queue"

	"github.com/spf13/cobra"
)

var (
	enqueueSettingsID string
	enqueueMode       string
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Queue a LeetCode solve for a settings row",
	Long:  "Queue a LeetCode solve for a settings row through the configured dispatcher. The open-job guard still applies.",
	RunE:  runEnqueue,
}

var heartbeatCmd = &cobra.Command{
	Use:   "heartbeat",
	Short: "Probe every active LeetCode session once",
	RunE:  runHeartbeat,
}

func init() {
	enqueueCmd.Flags().StringVar(&enqueueSettingsID, "settings-id", "", "Settings row to solve for (required)")
	enqueueCmd.Flags().StringVar(&enqueueMode, "mode", string(model.ModePOTD), "potd or next")
	_ = enqueueCmd.MarkFlagRequired("settings-id")
	rootCmd.AddCommand(enqueueCmd, heartbeatCmd)
}

// connect opens the shared stores and builds the app. The returned func closes them.
func connect() (*app.App, func()) {
	cfg := config.AppConfig
	log := newLogger()
	security.InitJWT(cfg.WorkerJWTSecret, cfg.WorkerTokenTTL())
	database.Connect(cfg.DBConnStr, log)
	queue.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, log)
	a := app.New(cfg, database.DB, queue.RDB, log)
	return a, func() {
		a.Drain()
		queue.CloseRedis(log)
		database.Close(log)
	}
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	mode := model.SolveMode(enqueueMode)
	if !mode.Valid() {
		return fmt.Errorf("--mode %q: %w", enqueueMode, common.ErrBadRequest)
	}

	a, closeAll := connect()
	defer closeAll()

	if _, err := a.SettingsRepo.GetByID(cmd.Context(), enqueueSettingsID); err != nil {
		return fmt.Errorf("settings %s: %w", enqueueSettingsID, err)
	}
	job, created, err := a.Jobs.Enqueue(cmd.Context(), enqueueSettingsID, model.PlatformLeetCode, mode)
	if err != nil {
		return err
	}
	if !created {
		fmt.Println("An open job already exists for today; nothing queued.")
		return nil
	}
	fmt.Printf("Queued job %s\n", job.ID)
	return nil
}

func runHeartbeat(cmd *cobra.Command, args []string) error {
	a, closeAll := connect()
	defer closeAll()

	results, err := a.Triggers.Heartbeat(cmd.Context())
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
