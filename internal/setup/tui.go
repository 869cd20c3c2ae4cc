package setup

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/lpkeeper/config"
	"github.com/vadiminshakov/lpkeeper/internal/domain"
)

// GeneratedConfigFile is written by RunTUI.
const GeneratedConfigFile = "config.gen.yaml"

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// answers collected by the wizard, all as typed.
type answers struct {
	pool        string
	pair        string
	targetBase  string
	targetQuote string
	tolerance   string
	interval    string
	keypairPath string
	journalDir  string
}

// RunTUI launches the terminal configuration wizard and writes
// GeneratedConfigFile. It returns the path of the written file.
func RunTUI() (string, error) {
	a := answers{
		pair:       "SOL_USDC",
		tolerance:  "0.10",
		interval:   "1h",
		journalDir: "./wal",
	}
	var confirm bool

	screen("STEP 1: POOL")
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("One liquidity position per pool.\n"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Pool address").
				Description("Base58 account address of the pool").
				Value(&a.pool).
				Validate(func(s string) error {
					_, err := domain.ParsePoolID(s)
					return err
				}),
			huh.NewInput().
				Title("Asset pair").
				Description("BASE_QUOTE, e.g. SOL_USDC").
				Value(&a.pair).
				Validate(func(s string) error {
					_, err := domain.ParsePair(s)
					return err
				}),
		),
	).Run()
	if err != nil {
		return "", err
	}

	screen("STEP 2: TARGET")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Target base amount").
				Value(&a.targetBase).
				Validate(validatePositive),
			huh.NewInput().
				Title("Target quote amount").
				Value(&a.targetQuote).
				Validate(validatePositive),
			huh.NewInput().
				Title("Tolerance").
				Description("Accepted relative drift per asset, (0, 1]").
				Value(&a.tolerance).
				Validate(validateTolerance),
		),
	).Run()
	if err != nil {
		return "", err
	}

	screen("STEP 3: RUNTIME")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Check interval").
				Description("Duration string (e.g. 30m, 1h)").
				Value(&a.interval).
				Validate(func(s string) error {
					d, err := time.ParseDuration(s)
					if err != nil {
						return err
					}
					if d <= 0 {
						return fmt.Errorf("must be positive")
					}
					return nil
				}),
			huh.NewInput().
				Title("Keypair file").
				Description("solana-keygen JSON file, empty for an ephemeral simulate key").
				Value(&a.keypairPath),
			huh.NewInput().
				Title("Journal directory").
				Value(&a.journalDir),
		),
	).Run()
	if err != nil {
		return "", err
	}

	screen("FINAL CONFIRMATION")
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(a.summary()))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and start").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return "", err
	}
	if !confirm {
		return "", fmt.Errorf("setup cancelled by user")
	}

	if err := Write(GeneratedConfigFile, a.configTmp()); err != nil {
		return "", err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nStarting rebalancer...", GeneratedConfigFile)))
	time.Sleep(1500 * time.Millisecond) // small pause to read success message
	return GeneratedConfigFile, nil
}

// Write stores positions as a yaml config readable by config.Get.
func Write(path string, positions ...config.ConfigTmp) error {
	data, err := yaml.Marshal(positions)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

func (a answers) configTmp() config.ConfigTmp {
	interval, _ := time.ParseDuration(a.interval)
	return config.ConfigTmp{
		Pool:          strings.TrimSpace(a.pool),
		Pair:          strings.ToUpper(strings.TrimSpace(a.pair)),
		TargetBase:    a.targetBase,
		TargetQuote:   a.targetQuote,
		Tolerance:     a.tolerance,
		CheckInterval: interval,
		Venue:         config.VenueSimulate,
		KeypairPath:   a.keypairPath,
		JournalDir:    a.journalDir,
	}
}

func (a answers) summary() string {
	return fmt.Sprintf("Pool: %s\nPair: %s\nTarget: %s / %s\nTolerance: %s\nInterval: %s\n",
		a.pool, a.pair, a.targetBase, a.targetQuote, a.tolerance, a.interval)
}

func screen(step string) {
	fmt.Print("\033[H\033[2J") // clear screen
	fmt.Println(headerStyle.Render("LPKEEPER CONFIG WIZARD"))
	fmt.Println(stepStyle.Render(step))
}

func validatePositive(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if !d.IsPositive() {
		return fmt.Errorf("must be greater than zero")
	}
	return nil
}

func validateTolerance(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if !d.IsPositive() || d.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("must be in (0, 1]")
	}
	return nil
}
