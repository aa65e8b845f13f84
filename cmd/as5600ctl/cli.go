package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/mtraver/angle-sensor/as5600"
	"github.com/mtraver/angle-sensor/as5600/configuration"
	"github.com/mtraver/angle-sensor/as5600/register"
)

var version = "dev"

type app struct {
	open    busOpener
	v       *viper.Viper
	cfgFile string
	cfg     *Config
	log     *zap.Logger
}

func initLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg.Level = lvl
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// withDevice opens the configured bus, runs fn on the sensor and closes the
// bus again.
func (a *app) withDevice(fn func(d *as5600.Dev) error) error {
	bus, closeBus, err := a.open(a.cfg.Bus)
	if err != nil {
		return err
	}
	defer closeBus()

	d, err := as5600.New(bus, &as5600.Opts{
		Addr:       a.cfg.Bus.Address,
		SettleTime: a.cfg.Bus.SettleTime,
	})
	if err != nil {
		return err
	}
	return fn(d)
}

func degrees(v uint16) string {
	return fmt.Sprintf("%.2f°", float64(as5600.AngleOf(v))/float64(physic.Degree))
}

func newRootCmd(open busOpener) *cobra.Command {
	a := &app{
		open: open,
		v:    viper.New(),
		cfg:  DefaultConfig(),
	}

	root := &cobra.Command{
		Use:           "as5600ctl",
		Short:         "Read, configure and program an AS5600 magnetic angle sensor",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Commands that never touch the device run without a config file.
			if cmd.Name() != "version" && cmd.Name() != "help" && cmd.Name() != "generate" {
				cfg, err := LoadConfig(a.v, a.cfgFile)
				if err != nil {
					return err
				}
				a.cfg = cfg
			}

			var err error
			a.log, err = initLogger(a.cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgFile, "config", "c", "", "config file (default as5600ctl.yaml in ., $HOME/.as5600ctl or /etc/as5600ctl)")
	pf.String("bus", "", "I²C bus name; empty for the default bus")
	pf.Uint16("addr", as5600.DefaultAddress, "I²C address of the sensor")
	pf.String("log-level", "info", "log level")
	a.v.BindPFlag("bus.name", pf.Lookup("bus"))
	a.v.BindPFlag("bus.address", pf.Lookup("addr"))
	a.v.BindPFlag("logging.level", pf.Lookup("log-level"))

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show, change or generate configuration",
	}
	configCmd.AddCommand(a.configShowCmd(), a.configSetCmd(), a.configGenerateCmd())

	positionCmd := &cobra.Command{
		Use:   "position",
		Short: "Program the output range",
	}
	positionCmd.AddCommand(a.positionSetCmd())

	burnCmd := &cobra.Command{
		Use:   "burn",
		Short: "Permanently program the sensor's one-time memory",
	}
	burnCmd.AddCommand(a.burnAngleCmd(), a.burnPositionCmd())

	root.AddCommand(
		a.readCmd(),
		a.dumpCmd(),
		a.statusCmd(),
		configCmd,
		positionCmd,
		burnCmd,
		versionCmd(),
	)
	return root
}

func (a *app) readCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read",
		Short: "Print the current angle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDevice(func(d *as5600.Dev) error {
				raw, err := d.RawAngle()
				if err != nil {
					return err
				}
				scaled, err := d.Angle()
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "raw_angle: %d (%s)\n", raw, degrees(raw))
				fmt.Fprintf(w, "angle: %d (%s)\n", scaled, degrees(scaled))
				return nil
			})
		},
	}
}

func (a *app) dumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print every readable register",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDevice(func(d *as5600.Dev) error {
				w := cmd.OutOrStdout()
				for _, reg := range register.All() {
					if !reg.Readable() {
						continue
					}
					v, err := d.ReadRegister(reg)
					if err != nil {
						return err
					}
					fmt.Fprintf(w, "%-10s 0x%02x  0x%04x\n", reg, reg.Address(), v)
				}
				return nil
			})
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print magnet status, burn count, AGC and magnitude",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDevice(func(d *as5600.Dev) error {
				st, err := d.MagnetStatus()
				if err != nil {
					return err
				}
				zmco, err := d.Zmco()
				if err != nil {
					return err
				}
				agc, err := d.AutomaticGainControl()
				if err != nil {
					return err
				}
				mag, err := d.Magnitude()
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "status: %v\n", st)
				fmt.Fprintf(w, "zmco: %d\n", zmco)
				fmt.Fprintf(w, "agc: %d\n", agc)
				fmt.Fprintf(w, "magnitude: %d\n", mag)
				return nil
			})
		},
	}
}

// configView is the printable form of a configuration.Configuration.
type configView struct {
	PowerMode           string `yaml:"power_mode"`
	Hysteresis          string `yaml:"hysteresis"`
	OutputStage         string `yaml:"output_stage"`
	PwmFrequency        string `yaml:"pwm_frequency"`
	SlowFilter          string `yaml:"slow_filter"`
	FastFilterThreshold string `yaml:"fast_filter_threshold"`
	Watchdog            string `yaml:"watchdog"`
	Raw                 string `yaml:"raw"`
}

func writeConfig(w io.Writer, c configuration.Configuration) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(configView{
		PowerMode:           c.PowerMode.String(),
		Hysteresis:          c.Hysteresis.String(),
		OutputStage:         c.OutputStage.String(),
		PwmFrequency:        c.PwmFrequency.String(),
		SlowFilter:          c.SlowFilter.String(),
		FastFilterThreshold: c.FastFilterThreshold.String(),
		Watchdog:            c.WatchdogState.String(),
		Raw:                 fmt.Sprintf("0x%04x", c.Raw),
	})
}

func (a *app) configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the decoded CONF register",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDevice(func(d *as5600.Dev) error {
				c, err := d.Config()
				if err != nil {
					return err
				}
				return writeConfig(cmd.OutOrStdout(), c)
			})
		},
	}
}

func (a *app) configSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change fields of the CONF register",
		Long: `Change fields of the CONF register. Fields whose flag is not given keep
their current value. The change is lost at power off unless burned with
"burn angle".`,
		Args: cobra.NoArgs,
	}

	f := cmd.Flags()
	f.String("power-mode", "", "NOM, LPM1, LPM2 or LPM3")
	f.String("hysteresis", "", "OFF, 1LSB, 2LSB or 3LSB")
	f.String("output-stage", "", "ANALOG, REDUCED_ANALOG or PWM")
	f.String("pwm-frequency", "", "115HZ, 230HZ, 460HZ or 920HZ")
	f.String("slow-filter", "", "16X, 8X, 4X or 2X")
	f.String("fast-filter-threshold", "", "SLOW_ONLY, 6LSB, 7LSB, 9LSB, 18LSB, 21LSB, 24LSB or 10LSB")
	f.String("watchdog", "", "ON or OFF")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return a.withDevice(func(d *as5600.Dev) error {
			c, err := d.Config()
			if err != nil {
				return err
			}

			changed, err := applyConfigFlags(cmd, &c)
			if err != nil {
				return err
			}
			if !changed {
				return errors.New("no fields given")
			}

			if err := d.SetConfig(c); err != nil {
				return err
			}
			a.log.Info("configuration written", zap.Stringer("config", c))
			return writeConfig(cmd.OutOrStdout(), c)
		})
	}
	return cmd
}

// applyConfigFlags copies the flags that were given on the command line into c.
func applyConfigFlags(cmd *cobra.Command, c *configuration.Configuration) (bool, error) {
	f := cmd.Flags()
	changed := false

	for _, apply := range []func() (bool, error){
		func() (bool, error) {
			return setField(f, "power-mode", configuration.ParsePowerMode, &c.PowerMode)
		},
		func() (bool, error) {
			return setField(f, "hysteresis", configuration.ParseHysteresis, &c.Hysteresis)
		},
		func() (bool, error) {
			return setField(f, "output-stage", configuration.ParseOutputStage, &c.OutputStage)
		},
		func() (bool, error) {
			return setField(f, "pwm-frequency", configuration.ParsePwmFrequency, &c.PwmFrequency)
		},
		func() (bool, error) {
			return setField(f, "slow-filter", configuration.ParseSlowFilter, &c.SlowFilter)
		},
		func() (bool, error) {
			return setField(f, "fast-filter-threshold", configuration.ParseFastFilterThreshold, &c.FastFilterThreshold)
		},
		func() (bool, error) {
			return setField(f, "watchdog", configuration.ParseWatchdogState, &c.WatchdogState)
		},
	} {
		ok, err := apply()
		if err != nil {
			return false, err
		}
		changed = changed || ok
	}
	return changed, nil
}

func setField[T any](f *pflag.FlagSet, name string, parse func(string) (T, error), dst *T) (bool, error) {
	if !f.Changed(name) {
		return false, nil
	}
	s, err := f.GetString(name)
	if err != nil {
		return false, err
	}
	v, err := parse(s)
	if err != nil {
		return false, fmt.Errorf("--%s: %w", name, err)
	}
	*dst = v
	return true, nil
}

func (a *app) configGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("output")
			if err := DefaultConfig().SaveConfig(out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "as5600ctl.yaml", "output file")
	return cmd
}

func (a *app) positionSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Write ZPOS, MPOS and/or MANG",
		Long: `Write the zero position (ZPOS), maximum position (MPOS) and/or maximum
angle (MANG) as 12-bit register values. Only the given flags are written.`,
		Args: cobra.NoArgs,
	}

	f := cmd.Flags()
	f.Uint16("zpos", 0, "zero position, 0-4095")
	f.Uint16("mpos", 0, "maximum position, 0-4095")
	f.Uint16("mang", 0, "maximum angle, 0-4095")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		writes := []struct {
			flag  string
			write func(d *as5600.Dev, v uint16) error
		}{
			{"zpos", (*as5600.Dev).SetZeroPosition},
			{"mpos", (*as5600.Dev).SetMaximumPosition},
			{"mang", (*as5600.Dev).SetMaximumAngle},
		}

		given := false
		for _, w := range writes {
			if f.Changed(w.flag) {
				v, _ := f.GetUint16(w.flag)
				if v > 0x0FFF {
					return fmt.Errorf("--%s must be at most 4095, got %d", w.flag, v)
				}
				given = true
			}
		}
		if !given {
			return errors.New("no positions given")
		}

		return a.withDevice(func(d *as5600.Dev) error {
			for _, w := range writes {
				if !f.Changed(w.flag) {
					continue
				}
				v, _ := f.GetUint16(w.flag)
				if err := w.write(d, v); err != nil {
					return err
				}
				a.log.Info("position written", zap.String("register", w.flag), zap.Uint16("value", v))
			}
			return nil
		})
	}
	return cmd
}

func (a *app) burnAngleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "angle",
		Short: "Burn MANG and CONF (possible once, before any position burn)",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().Bool("yes", false, "confirm the irreversible burn")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return errors.New("refusing to burn without --yes; the angle and configuration can be burned only once")
		}
		return a.withDevice(func(d *as5600.Dev) error {
			if err := d.PersistAngleAndConfig(); err != nil {
				return err
			}
			a.log.Info("burned angle and configuration")
			fmt.Fprintln(cmd.OutOrStdout(), "burned angle and configuration")
			return nil
		})
	}
	return cmd
}

func (a *app) burnPositionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "position",
		Short: "Burn ZPOS and MPOS (possible three times, magnet required)",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().Bool("yes", false, "confirm the irreversible burn")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return errors.New("refusing to burn without --yes; positions can be burned at most three times")
		}
		return a.withDevice(func(d *as5600.Dev) error {
			if err := d.PersistPosition(); err != nil {
				return err
			}
			zmco, err := d.Zmco()
			if err != nil {
				return err
			}
			a.log.Info("burned position", zap.Uint8("zmco", zmco))
			fmt.Fprintf(cmd.OutOrStdout(), "burned position (%d of 3 used)\n", zmco)
			return nil
		})
	}
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "as5600ctl %s\n", version)
		},
	}
}
