package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/relabs-tech/unit_imu/internal/config"
	"github.com/relabs-tech/unit_imu/internal/imu"
	"github.com/relabs-tech/unit_imu/internal/monitor"
	"github.com/relabs-tech/unit_imu/internal/orientation"
)

// Shell is an interactive console onto one sensor.
type Shell struct {
	unit *Unit
	out  io.Writer
	ctx  context.Context

	watching []func()
}

// NewShell writes command output to out.
func NewShell(u *Unit, out io.Writer) *Shell {
	return &Shell{unit: u, out: out, ctx: context.Background()}
}

// Run reads commands until EOF, "exit" or ctx ends.
func (s *Shell) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "imu> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	s.out = rl.Stdout()
	s.ctx = ctx
	defer s.unwatch()

	s.printHelp()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			return nil
		}
		if s.Exec(line) {
			return nil
		}
	}
}

// Exec runs one command line and reports whether the shell should exit.
func (s *Shell) Exec(line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	var err error
	switch cmd {
	case "help", "?":
		s.printHelp()
	case "exit", "quit", "q":
		return true
	case "init":
		err = s.unit.Dev.Reinit()
		if err == nil {
			fmt.Fprintln(s.out, "initialized")
		}
	case "whoami":
		err = s.cmdWhoAmI()
	case "accel", "a":
		err = s.cmdVector(args, s.unit.Dev.ReadAcceleration, s.unit.Dev.Acceleration, "g")
	case "gyro", "g":
		err = s.cmdVector(args, s.unit.Dev.ReadGyroscope, s.unit.Dev.Gyroscope, "dps")
	case "raw":
		err = s.cmdRaw(args)
	case "orient", "o":
		err = s.cmdOrient()
	case "rot":
		err = s.cmdRot()
	case "tilt":
		err = s.cmdTilt()
	case "scale":
		err = s.cmdScale(args)
	case "temp":
		err = s.cmdTemp()
	case "fifo":
		err = s.cmdFIFO(args)
	case "read", "r":
		err = s.cmdRead(args)
	case "write", "w":
		err = s.cmdWrite(args)
	case "dump":
		err = DumpRegisters(s.unit.Dev, s.out)
	case "watch":
		s.watch()
	case "unwatch":
		s.unwatch()
		fmt.Fprintln(s.out, "stopped watching")
	default:
		err = fmt.Errorf("unknown command %q, try help", cmd)
	}
	if err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
	}
	return false
}

func (s *Shell) printHelp() {
	fmt.Fprint(s.out, `Commands:
  accel [x|y|z]          acceleration in g
  gyro [x|y|z]           angular rate in dps
  raw accel|gyro x|y|z   unscaled axis reading
  orient | rot | tilt    classification
  scale accel|gyro N     set full-scale selector 0-3
  temp                   die temperature
  fifo on|off|count|reset
  read ADDR              read a register (hex)
  write ADDR VALUE       write a register (hex)
  dump                   YAML register snapshot
  watch | unwatch        print orientation and rotation changes
  whoami | init | exit
`)
}

func (s *Shell) cmdWhoAmI() error {
	id, err := s.unit.Dev.WhoAmI()
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "WHO_AM_I = 0x%02X\n", id)
	return nil
}

func (s *Shell) cmdVector(args []string, all func() (imu.Vector3, error), one func(imu.Axis) (float64, error), unit string) error {
	if len(args) > 0 {
		axis, err := imu.ParseAxis(args[0])
		if err != nil {
			return err
		}
		v, err := one(axis)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%s = %.3f %s\n", axis, v, unit)
		return nil
	}
	v, err := all()
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "x=%.3f y=%.3f z=%.3f %s\n", v.X, v.Y, v.Z, unit)
	return nil
}

func (s *Shell) cmdRaw(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: raw accel|gyro x|y|z")
	}
	axis, err := imu.ParseAxis(args[1])
	if err != nil {
		return err
	}
	var v int16
	switch args[0] {
	case "accel":
		v, err = s.unit.Dev.AccelRaw(axis)
	case "gyro":
		v, err = s.unit.Dev.GyroRaw(axis)
	default:
		return fmt.Errorf("unknown sensor %q", args[0])
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s %s raw = %d\n", args[0], axis, v)
	return nil
}

func (s *Shell) cmdOrient() error {
	o, err := s.unit.Classifier.Orientation()
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, s.unit.Classifier.Layout().Name(o))
	return nil
}

func (s *Shell) cmdRot() error {
	r, err := s.unit.Classifier.Rotation()
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, orientation.RotationName(r))
	return nil
}

func (s *Shell) cmdTilt() error {
	t, err := s.unit.Classifier.Tilt()
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "roll=%.1f pitch=%.1f\n", t.Roll, t.Pitch)
	return nil
}

func (s *Shell) cmdScale(args []string) error {
	if len(args) != 2 {
		fmt.Fprintf(s.out, "accel %s, gyro %s\n", s.unit.Dev.AccelScale(), s.unit.Dev.GyroScale())
		return nil
	}
	n, err := strconv.Atoi(args[1])
	if err != nil || n < 0 || n > 3 {
		return fmt.Errorf("scale must be 0-3, got %q", args[1])
	}
	switch args[0] {
	case "accel":
		err = s.unit.Dev.SetAccelScale(imu.AccelScale(n))
	case "gyro":
		err = s.unit.Dev.SetGyroScale(imu.GyroScale(n))
	default:
		return fmt.Errorf("unknown sensor %q", args[0])
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "accel %s, gyro %s\n", s.unit.Dev.AccelScale(), s.unit.Dev.GyroScale())
	return nil
}

func (s *Shell) cmdTemp() error {
	t, err := s.unit.Dev.Temperature()
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%.2f °C\n", t)
	return nil
}

func (s *Shell) cmdFIFO(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: fifo on|off|count|reset")
	}
	switch args[0] {
	case "on", "off":
		if err := s.unit.Dev.EnableFIFO(args[0] == "on"); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "fifo %s\n", args[0])
	case "count":
		n, err := s.unit.Dev.FIFOCount()
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "fifo count = %d\n", n)
	case "reset":
		if err := s.unit.Dev.ResetFIFO(); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "fifo reset")
	default:
		return fmt.Errorf("usage: fifo on|off|count|reset")
	}
	return nil
}

func (s *Shell) cmdRead(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: read ADDR")
	}
	addr, err := parseRegArg(args[0])
	if err != nil {
		return err
	}
	v, err := s.unit.Dev.ReadRegister(addr)
	if err != nil {
		return err
	}
	name := "?"
	if info, ok := imu.LookupRegister(addr); ok {
		name = info.Name
	}
	fmt.Fprintf(s.out, "0x%02X %s = 0x%02X\n", addr, name, v)
	return nil
}

func (s *Shell) cmdWrite(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: write ADDR VALUE")
	}
	addr, err := parseRegArg(args[0])
	if err != nil {
		return err
	}
	value, err := parseRegArg(args[1])
	if err != nil {
		return err
	}
	if !isRegisterWritable(addr) {
		return fmt.Errorf("register 0x%02X is not writable", addr)
	}
	if err := s.unit.Dev.WriteRegister(addr, value); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "0x%02X <- 0x%02X\n", addr, value)
	return nil
}

// parseRegArg accepts 0x1C, 1C or 28.
func parseRegArg(arg string) (byte, error) {
	v, err := strconv.ParseUint(arg, 0, 8)
	if err != nil {
		v, err = strconv.ParseUint(arg, 16, 8)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid byte %q", arg)
	}
	return byte(v), nil
}

func (s *Shell) watch() {
	if len(s.watching) > 0 {
		fmt.Fprintln(s.out, "already watching")
		return
	}
	c := s.unit.Classifier

	om := monitor.New[orientation.Orientation]("orientation", c.Orientation)
	om.Register(s.ctx, func(o orientation.Orientation) {
		fmt.Fprintf(s.out, "orientation -> %s\n", c.Layout().Name(o))
	})
	s.watching = append(s.watching, om.Stop)

	if c.RotationEnabled() {
		rm := monitor.New[orientation.Rotation]("rotation", c.Rotation)
		rm.Register(s.ctx, func(r orientation.Rotation) {
			fmt.Fprintf(s.out, "rotation -> %s\n", orientation.RotationName(r))
		})
		s.watching = append(s.watching, rm.Stop)
	}
	fmt.Fprintln(s.out, "watching, unwatch to stop")
}

func (s *Shell) unwatch() {
	for _, stop := range s.watching {
		stop()
	}
	s.watching = nil
}

// RunShell opens the sensor and runs an interactive shell on it.
func RunShell(ctx context.Context, cfg *config.Config) error {
	unit, err := OpenUnit(cfg)
	if err != nil {
		return err
	}
	defer unit.Close()

	if unit.Sim != nil {
		go unit.Animate(ctx, simTumblePeriod)
	}
	return NewShell(unit, os.Stdout).Run(ctx)
}
