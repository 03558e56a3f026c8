package hardware

import (
	"fmt"
	"log"

	"github.com/warthog618/go-gpiocdev"
)

// Outputs drives the discrete output lines: the pullup alert lamp and the
// healthy indication.
type Outputs struct {
	chip   *gpiocdev.Chip
	lines  map[string]*gpiocdev.Line
	logger *log.Logger
	dryRun bool
}

// NewOutputs opens the GPIO chip and requests the two output lines, both
// initially low. In dry-run mode no hardware is touched.
func NewOutputs(logger *log.Logger, chipName string, pullupLine, healthyLine int, dryRun bool) (*Outputs, error) {
	o := &Outputs{
		lines:  make(map[string]*gpiocdev.Line),
		logger: logger,
		dryRun: dryRun,
	}

	if !dryRun {
		chip, err := gpiocdev.NewChip(chipName)
		if err != nil {
			return nil, fmt.Errorf("failed to open GPIO chip: %w", err)
		}
		o.chip = chip

		pullup, err := chip.RequestLine(pullupLine, gpiocdev.AsOutput(0))
		if err != nil {
			chip.Close()
			return nil, fmt.Errorf("failed to request pullup GPIO: %w", err)
		}
		o.lines["pullup"] = pullup

		healthy, err := chip.RequestLine(healthyLine, gpiocdev.AsOutput(0))
		if err != nil {
			pullup.Close()
			chip.Close()
			return nil, fmt.Errorf("failed to request healthy GPIO: %w", err)
		}
		o.lines["healthy"] = healthy

		logger.Printf("Initialized discrete output lines: pullup (offset %d), healthy (offset %d)",
			pullupLine, healthyLine)
	}

	return o, nil
}

// SetPullup drives the pullup alert line.
func (o *Outputs) SetPullup(asserted bool) error {
	return o.set("pullup", asserted)
}

// SetHealthy drives the healthy indication line.
func (o *Outputs) SetHealthy(asserted bool) error {
	return o.set("healthy", asserted)
}

func (o *Outputs) set(name string, asserted bool) error {
	if o.dryRun {
		o.logger.Printf("DRY RUN: Would set %s output to %v", name, asserted)
		return nil
	}

	line, exists := o.lines[name]
	if !exists {
		return fmt.Errorf("%s GPIO line not initialized", name)
	}

	value := 0
	if asserted {
		value = 1
	}

	if err := line.SetValue(value); err != nil {
		return fmt.Errorf("failed to set %s GPIO: %w", name, err)
	}

	return nil
}

// Close releases all GPIO resources.
func (o *Outputs) Close() error {
	if o.dryRun {
		return nil
	}

	var lastErr error

	for name, line := range o.lines {
		if err := line.Close(); err != nil {
			o.logger.Printf("Failed to close GPIO line %s: %v", name, err)
			lastErr = err
		}
	}

	if o.chip != nil {
		if err := o.chip.Close(); err != nil {
			o.logger.Printf("Failed to close GPIO chip: %v", err)
			lastErr = err
		}
	}

	return lastErr
}
