package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"rebalancer/internal/catalog"
	"rebalancer/internal/config"
	"rebalancer/internal/models"
	"rebalancer/internal/portfolio"
	"rebalancer/internal/service"
)

const rule = "--------------------------------------------------"

var errInputClosed = errors.New("input closed")

func main() {
	cfg := config.Load()
	logger := cfg.Logger()
	logger.SetOutput(os.Stderr)

	reg := portfolio.NewRegistry(logger)
	if _, err := catalog.Apply(context.Background(), catalog.FileSource{Path: cfg.StocksFile}, reg); err != nil {
		logger.Fatalf("load catalog: %v", err)
	}
	presets, err := catalog.LoadPresets(cfg.AllocationsDir)
	if err != nil {
		logger.Fatalf("load presets: %v", err)
	}
	if len(presets) == 0 {
		logger.Fatalf("no allocation presets in %s", cfg.AllocationsDir)
	}

	if err := run(os.Stdin, os.Stdout, reg, presets, logger); err != nil && !errors.Is(err, errInputClosed) {
		logger.Fatal(err)
	}
}

type prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func (p *prompter) ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", errInputClosed
	}
	return strings.TrimSpace(p.in.Text()), nil
}

func run(in io.Reader, out io.Writer, reg *portfolio.Registry, presets []models.Preset, logger *logrus.Logger) error {
	p := &prompter{in: bufio.NewScanner(in), out: out}

	fmt.Fprintln(out, "Welcome to the Portfolio Manager!")
	fmt.Fprintln(out, "Let's create a new portfolio.")

	first, err := selectPreset(p, presets)
	if err != nil {
		return err
	}
	amount, err := askAmount(p, first.Name)
	if err != nil {
		return err
	}

	pf, err := portfolio.NewFromAllocation(reg, first.Name, portfolio.Allocation(first.Allocation), amount)
	if err != nil {
		return fmt.Errorf("create portfolio %s: %w", first.Name, err)
	}
	logger.Debugf("portfolio %s created with %d holdings", pf.Name(), pf.Holdings().Len())
	fmt.Fprintf(out, "You invested %s in %s successfully!\n", strconv.FormatFloat(amount, 'f', -1, 64), first.Name)

	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "Want to change your risk profile?")
	fmt.Fprintln(out, "Let's change the allocation of the portfolio:")
	next, err := selectPreset(p, presets)
	if err != nil {
		return err
	}
	if err := pf.SetAllocationTarget(portfolio.Allocation(next.Allocation)); err != nil {
		return fmt.Errorf("set target %s: %w", next.Name, err)
	}
	dev, err := pf.Deviation()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "You changed the allocation target of the portfolio to %s!\n", next.Name)
	fmt.Fprintln(out, "To rebalance the portfolio we need to do the following:")
	fmt.Fprintln(out, rule)
	for _, instr := range dev.Instructions(service.NoActionTolerance) {
		fmt.Fprintln(out, instr.String())
	}
	fmt.Fprintln(out, rule)
	return nil
}

func printPresets(out io.Writer, presets []models.Preset) {
	fmt.Fprintln(out, "Available allocations:")
	for i, pr := range presets {
		fmt.Fprintf(out, "    - %s: %d\n", pr.Name, i)
	}
}

func selectPreset(p *prompter, presets []models.Preset) (models.Preset, error) {
	fmt.Fprintln(p.out, "Please choose an allocation from the list below:")
	fmt.Fprintln(p.out, rule)
	printPresets(p.out, presets)
	for {
		answer, err := p.ask("Enter the number of the allocation file: ")
		if err != nil {
			return models.Preset{}, err
		}
		n, err := strconv.Atoi(answer)
		switch {
		case err != nil || n < 0:
			fmt.Fprintln(p.out, "Invalid input. Please enter a number.")
		case n >= len(presets):
			fmt.Fprintln(p.out, "Invalid number. Please try again.")
		default:
			return presets[n], nil
		}
		printPresets(p.out, presets)
	}
}

func askAmount(p *prompter, name string) (float64, error) {
	for {
		answer, err := p.ask(fmt.Sprintf("Enter how much money do you want to invest in %s? ", name))
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(answer, 64)
		switch {
		case err != nil:
			fmt.Fprintln(p.out, "Invalid input. Please enter a number.")
		case v <= 0 || math.IsNaN(v) || math.IsInf(v, 0):
			fmt.Fprintln(p.out, "Invalid input. Please enter a positive number.")
		default:
			return v, nil
		}
	}
}
