package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"rebalancer/internal/catalog"
	"rebalancer/internal/models"
	"rebalancer/internal/portfolio"
)

var (
	ErrPortfolioNotFound = errors.New("portfolio not found")
	ErrPortfolioExists   = errors.New("portfolio already exists")
	ErrPresetNotFound    = errors.New("preset not found")
	ErrInvalidName       = errors.New("portfolio name is required")
)

// NoActionTolerance is the deviation below which no trade is suggested.
const NoActionTolerance = 1e-9

// CreateRequest describes a new portfolio: either a preset name or an explicit
// allocation, and the amount to invest.
type CreateRequest struct {
	Name       string             `json:"name" binding:"required"`
	Preset     string             `json:"preset"`
	Allocation map[string]float64 `json:"allocation"`
	Amount     float64            `json:"amount" binding:"required"`
}

// Summary is the rendered state of a portfolio.
type Summary struct {
	Name      string               `json:"name"`
	Value     float64              `json:"value"`
	Positions []portfolio.Position `json:"positions"`
	Target    portfolio.Allocation `json:"target"`
}

// Plan is a deviation rendered as trade instructions.
type Plan struct {
	Name         string               `json:"name"`
	Value        float64              `json:"value"`
	Instructions []models.Instruction `json:"instructions"`
}

type entry struct {
	mu sync.Mutex
	p  *portfolio.Portfolio
}

// PortfolioService keeps named portfolios in memory. Each portfolio is
// serialized by its own lock.
type PortfolioService struct {
	reg     *portfolio.Registry
	presets []models.Preset
	log     *logrus.Logger

	mu         sync.RWMutex
	portfolios map[string]*entry
}

func NewPortfolioService(reg *portfolio.Registry, presets []models.Preset, log *logrus.Logger) *PortfolioService {
	return &PortfolioService{
		reg:        reg,
		presets:    presets,
		log:        log,
		portfolios: make(map[string]*entry),
	}
}

func (s *PortfolioService) Presets() []models.Preset { return s.presets }

func (s *PortfolioService) Instruments() []portfolio.Position {
	insts := s.reg.Instruments()
	res := make([]portfolio.Position, 0, len(insts))
	for _, inst := range insts {
		res = append(res, portfolio.Position{Symbol: inst.Symbol(), Price: inst.Price()})
	}
	return res
}

// UpdatePrice registers or reprices an instrument. Every portfolio holding it
// sees the new price immediately.
func (s *PortfolioService) UpdatePrice(symbol string, price float64) (portfolio.Position, error) {
	inst, err := s.reg.Set(symbol, price)
	if err != nil {
		return portfolio.Position{}, err
	}
	s.log.Infof("price of %s set to %v", inst.Symbol(), price)
	return portfolio.Position{Symbol: inst.Symbol(), Price: inst.Price()}, nil
}

// ResolveAllocation picks the explicit allocation if given, else the preset.
func (s *PortfolioService) ResolveAllocation(preset string, alloc map[string]float64) (portfolio.Allocation, error) {
	if len(alloc) > 0 {
		return portfolio.Allocation(alloc), nil
	}
	p, ok := catalog.FindPreset(s.presets, preset)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPresetNotFound, preset)
	}
	return portfolio.Allocation(p.Allocation), nil
}

func (s *PortfolioService) Create(req CreateRequest) (Summary, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return Summary{}, ErrInvalidName
	}
	alloc, err := s.ResolveAllocation(req.Preset, req.Allocation)
	if err != nil {
		return Summary{}, err
	}
	if req.Amount <= 0 {
		return Summary{}, fmt.Errorf("%w: %v", portfolio.ErrInvalidAmount, req.Amount)
	}
	p, err := portfolio.NewFromAllocation(s.reg, name, alloc, req.Amount)
	if err != nil {
		return Summary{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.portfolios[name]; ok {
		return Summary{}, fmt.Errorf("%w: %s", ErrPortfolioExists, name)
	}
	s.portfolios[name] = &entry{p: p}
	s.log.Infof("created portfolio %s worth %.2f", name, req.Amount)
	return summarize(p), nil
}

func (s *PortfolioService) List() []Summary {
	s.mu.RLock()
	names := make([]string, 0, len(s.portfolios))
	for n := range s.portfolios {
		names = append(names, n)
	}
	s.mu.RUnlock()
	sort.Strings(names)

	res := make([]Summary, 0, len(names))
	for _, n := range names {
		if sum, err := s.Get(n); err == nil {
			res = append(res, sum)
		}
	}
	return res
}

func (s *PortfolioService) Get(name string) (Summary, error) {
	var sum Summary
	err := s.with(name, func(p *portfolio.Portfolio) error {
		sum = summarize(p)
		return nil
	})
	return sum, err
}

func (s *PortfolioService) SetTarget(name, preset string, alloc map[string]float64) (Summary, error) {
	target, err := s.ResolveAllocation(preset, alloc)
	if err != nil {
		return Summary{}, err
	}
	var sum Summary
	err = s.with(name, func(p *portfolio.Portfolio) error {
		if err := p.SetAllocationTarget(target); err != nil {
			return err
		}
		sum = summarize(p)
		return nil
	})
	return sum, err
}

func (s *PortfolioService) Deviation(name string) (Plan, error) {
	var plan Plan
	err := s.with(name, func(p *portfolio.Portfolio) error {
		dev, err := p.Deviation()
		if err != nil {
			return err
		}
		plan = Plan{Name: p.Name(), Value: p.Value(), Instructions: dev.Instructions(NoActionTolerance)}
		return nil
	})
	return plan, err
}

func (s *PortfolioService) Rebalance(name string) (Plan, error) {
	var plan Plan
	err := s.with(name, func(p *portfolio.Portfolio) error {
		dev, err := p.Rebalance()
		if err != nil {
			return err
		}
		plan = Plan{Name: p.Name(), Value: p.Value(), Instructions: dev.Instructions(NoActionTolerance)}
		s.log.Infof("rebalanced portfolio %s", p.Name())
		return nil
	})
	return plan, err
}

func (s *PortfolioService) Deposit(name string, amount float64) (Summary, error) {
	var sum Summary
	err := s.with(name, func(p *portfolio.Portfolio) error {
		if err := p.Deposit(amount); err != nil {
			return err
		}
		sum = summarize(p)
		return nil
	})
	return sum, err
}

func (s *PortfolioService) Withdraw(name string, amount float64) (Summary, error) {
	var sum Summary
	err := s.with(name, func(p *portfolio.Portfolio) error {
		if err := p.Withdraw(amount); err != nil {
			return err
		}
		sum = summarize(p)
		return nil
	})
	return sum, err
}

func (s *PortfolioService) with(name string, fn func(p *portfolio.Portfolio) error) error {
	s.mu.RLock()
	e, ok := s.portfolios[strings.TrimSpace(name)]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrPortfolioNotFound, name)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.p)
}

func summarize(p *portfolio.Portfolio) Summary {
	return Summary{
		Name:      p.Name(),
		Value:     p.Value(),
		Positions: p.Holdings().Snapshot(),
		Target:    p.Target(),
	}
}
