package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/forgeworks/stencilforge/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "stencilforge",
	Short: "Turn Gerber exports into 3D printable solder paste stencils",
	Long: "Stencilforge reads a PCB fabrication export (directory or zip), finds the\n" +
		"solder paste and board outline layers, and generates a printable stencil STL\n" +
		"with optional board-locating fixtures.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default .stencilforge.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
}

func initConfig() {
	if cfgFile, _ := rootCmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".stencilforge")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("STENCILFORGE")
	viper.AutomaticEnv()

	config.SetDefaults(viper.GetViper())

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()
}

// loadConfig materializes the config from viper plus an optional board
// profile and shared flag overrides.
func loadConfig(cmd *cobra.Command) (config.StencilConfig, error) {
	if profilePath, _ := cmd.Flags().GetString("profile"); profilePath != "" {
		profile, err := config.LoadProfile(profilePath)
		if err != nil {
			return config.StencilConfig{}, err
		}
		profile.Apply(viper.GetViper())
	}
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return config.StencilConfig{}, err
	}
	applyFlagOverrides(cmd, &cfg)
	return cfg, nil
}

// applyFlagOverrides applies CLI flag values to the loaded config.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.StencilConfig) {
	if cmd.Flags().Changed("thickness") {
		cfg.ThicknessMM, _ = cmd.Flags().GetFloat64("thickness")
	}
	if cmd.Flags().Changed("paste-offset") {
		cfg.PasteOffsetMM, _ = cmd.Flags().GetFloat64("paste-offset")
	}
	if cmd.Flags().Changed("mode") {
		cfg.OutputMode, _ = cmd.Flags().GetString("mode")
	}
	if cmd.Flags().Changed("backend") {
		cfg.ModelBackend, _ = cmd.Flags().GetString("backend")
	}
	if cmd.Flags().Changed("format") {
		cfg.STLFormat, _ = cmd.Flags().GetString("format")
	}
	if cmd.Flags().Changed("locator") {
		cfg.LocatorEnabled, _ = cmd.Flags().GetBool("locator")
	}
	if cmd.Flags().Changed("qfn-regen") {
		cfg.QFNRegenEnabled, _ = cmd.Flags().GetBool("qfn-regen")
	}
	if v, _ := rootCmd.PersistentFlags().GetBool("verbose"); v {
		cfg.Verbose = true
	}
}

// addStencilFlags registers the flags shared by generate and watch.
func addStencilFlags(cmd *cobra.Command) {
	cmd.Flags().String("profile", "", "board profile TOML (input/output/overrides)")
	cmd.Flags().Float64("thickness", 0, "stencil thickness in mm")
	cmd.Flags().Float64("paste-offset", 0, "paste opening offset in mm (negative shrinks)")
	cmd.Flags().String("mode", "", "output mode: solid_with_cutouts or holes_only")
	cmd.Flags().String("backend", "", "model backend: earcut or scanline")
	cmd.Flags().String("format", "", "stl format: binary or ascii")
	cmd.Flags().Bool("locator", false, "enable the board locator fixture")
	cmd.Flags().Bool("qfn-regen", false, "enable QFN paste regeneration")
}
