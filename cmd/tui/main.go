package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"fadebot-go/internal/config"
)

const defaultConfigPath = "internal/config/config.yaml"

func main() {
	reader := bufio.NewReader(os.Stdin)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	for {
		fmt.Println("\n=== FadeBot Control ===")
		fmt.Println("1) Show configuration summary")
		fmt.Println("2) Edit trading knobs")
		fmt.Println("3) Edit strategy filter")
		fmt.Println("4) Save config")
		fmt.Println("5) Launch bot")
		fmt.Println("6) Reload config from disk")
		fmt.Println("0) Exit")
		fmt.Print("Select option: ")

		input, _ := reader.ReadString('\n')
		choice := strings.TrimSpace(input)

		switch choice {
		case "1":
			printSummary(cfg)
		case "2":
			editTrading(reader, cfg)
		case "3":
			editFilter(reader, cfg)
		case "4":
			if err := saveConfig(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			} else {
				fmt.Println("config saved")
			}
		case "5":
			launchBot(reader)
		case "6":
			reloaded, err := loadConfig()
			if err != nil {
				fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			} else {
				cfg = reloaded
				fmt.Println("config reloaded")
			}
		case "0":
			return
		default:
			fmt.Println("unknown option")
		}
	}
}

func printSummary(cfg *config.Config) {
	fmt.Println("\n--- Configuration Summary ---")
	fmt.Printf("Trading enabled: %v\n", cfg.Trading.Enabled)
	fmt.Printf("Trade amount: $%.2f\n", cfg.Trading.TradeAmount)
	fmt.Printf("Min payout: %.1f%%\n", cfg.Trading.MinPayoutPercent)
	fmt.Printf("Expiry: %ds | cooldown: %dms\n", cfg.Trading.ExpirySeconds, cfg.Trading.CooldownMs)
	fmt.Printf("Auto asset switch: %v\n", cfg.Trading.AutoAssetSwitch)
	fmt.Printf("Max drawdown: %.1f%% | max consecutive losses: %d\n", cfg.Trading.MaxDrawdownPercent, cfg.Trading.MaxConsecutiveLosses)
	fmt.Println("Strategy filter:", filterSummary(cfg.Trading.StrategyFilter))
	fmt.Printf("Feed: %s | instruments: %s\n", cfg.Broker.Feed, strings.Join(cfg.Broker.Instruments, ", "))
	fmt.Printf("Settlement grace: %dms\n", cfg.Settlement.GraceMs)
	fmt.Printf("Paper starting cash: $%.2f\n", cfg.Paper.StartingCash)
}

// editTrading routes the edits through a runtime store so the TUI enforces the
// same bounds the live bot does. Rejected fields keep their old value.
func editTrading(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Trading ---")
	enabled := promptBool(reader, "Trading enabled", cfg.Trading.Enabled)
	autoSwitch := promptBool(reader, "Auto asset switch", cfg.Trading.AutoAssetSwitch)
	onlyRSI := promptBool(reader, "Legacy only-RSI rule", cfg.Trading.OnlyRSI)
	amount := promptFloat(reader, "Trade amount (USD)", cfg.Trading.TradeAmount)
	minPayout := promptFloat(reader, "Min payout (%)", cfg.Trading.MinPayoutPercent)
	maxDrawdown := promptFloat(reader, "Max drawdown (%)", cfg.Trading.MaxDrawdownPercent)
	maxLosses := promptInt(reader, "Max consecutive losses", cfg.Trading.MaxConsecutiveLosses)
	expiry := promptInt(reader, "Expiry (seconds)", cfg.Trading.ExpirySeconds)
	applyPatch(cfg, config.Patch{
		Enabled:              &enabled,
		AutoAssetSwitch:      &autoSwitch,
		OnlyRSI:              &onlyRSI,
		TradeAmount:          &amount,
		MinPayoutPercent:     &minPayout,
		MaxDrawdownPercent:   &maxDrawdown,
		MaxConsecutiveLosses: &maxLosses,
		ExpirySeconds:        &expiry,
	})
	cfg.Trading.CooldownMs = promptInt(reader, "Cooldown (ms)", cfg.Trading.CooldownMs)
}

func editFilter(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Strategy Filter ---")
	fmt.Println("Current:", filterSummary(cfg.Trading.StrategyFilter))
	fmt.Print("Mode (allowlist/denylist, 'clear' to remove, blank to keep): ")
	line, _ := reader.ReadString('\n')
	mode := strings.ToLower(strings.TrimSpace(line))
	switch mode {
	case "":
		return
	case "clear":
		applyPatch(cfg, config.Patch{ClearStrategyFilter: true})
		return
	}

	patterns := currentPatterns(cfg.Trading.StrategyFilter)
	fmt.Printf("Current patterns: %s\n", strings.Join(patterns, ", "))
	fmt.Print("Enter patterns comma-separated (blank to keep): ")
	if line, _ := reader.ReadString('\n'); strings.TrimSpace(line) != "" {
		patterns = nil
		for _, p := range strings.Split(strings.TrimSpace(line), ",") {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				patterns = append(patterns, trimmed)
			}
		}
	}
	applyPatch(cfg, config.Patch{StrategyFilter: &config.StrategyFilter{Mode: mode, Patterns: patterns}})
}

func applyPatch(cfg *config.Config, p config.Patch) {
	store := config.NewStore(cfg.Trading)
	for _, err := range store.Update(p) {
		fmt.Fprintf(os.Stderr, "rejected: %v\n", err)
	}
	cfg.Trading = store.Current()
}

func filterSummary(f *config.StrategyFilter) string {
	if f == nil {
		return "none (legacy only_rsi rule applies)"
	}
	return fmt.Sprintf("%s: %s", f.Mode, strings.Join(f.Patterns, ", "))
}

func currentPatterns(f *config.StrategyFilter) []string {
	if f == nil {
		return nil
	}
	return f.Patterns
}

func launchBot(reader *bufio.Reader) {
	fmt.Println("Launching bot (Ctrl+C to stop)...")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "run", "./cmd/bot")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start bot: %v\n", err)
		return
	}

	go func() {
		_ = cmd.Wait()
		cancel()
	}()

	fmt.Print("\nPress ENTER to stop the bot and return to menu...")
	_, _ = reader.ReadString('\n')
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func promptFloat(reader *bufio.Reader, label string, current float64) float64 {
	fmt.Printf("%s [%.2f]: ", label, current)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	val, err := strconv.ParseFloat(line, 64)
	if err != nil {
		fmt.Printf("invalid number, keeping %.2f\n", current)
		return current
	}
	return val
}

func promptInt(reader *bufio.Reader, label string, current int) int {
	fmt.Printf("%s [%d]: ", label, current)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	val, err := strconv.Atoi(line)
	if err != nil {
		fmt.Printf("invalid number, keeping %d\n", current)
		return current
	}
	return val
}

func promptBool(reader *bufio.Reader, label string, current bool) bool {
	state := "n"
	if current {
		state = "y"
	}
	fmt.Printf("%s [y/n, current %s]: ", label, state)
	line, _ := reader.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
		return current
	case "y", "yes", "true":
		return true
	case "n", "no", "false":
		return false
	default:
		fmt.Printf("invalid answer, keeping %s\n", state)
		return current
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(locateConfig())
}

func saveConfig(cfg *config.Config) error {
	return config.Save(locateConfig(), cfg)
}

func locateConfig() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return filepath.Clean(defaultConfigPath)
}
