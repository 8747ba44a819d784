package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"jichul/internal/core"
)

// DefaultLoader synthesizes the snapshot used when no other source has one:
// no expenses, and the payees listed in an optional YAML seed file. It never
// fails unless the seed file exists and is malformed.
type DefaultLoader struct {
	seedPath string
}

func NewDefaultLoader(seedPath string) *DefaultLoader {
	return &DefaultLoader{seedPath: seedPath}
}

func (l *DefaultLoader) Name() string { return "default" }

// payeeSeed is one entry of the seed file:
//
//	- name: 세차
//	  bank_name: 국민은행
//	  account_number: "40880101094704"
//	  owner_name: 김란향
//	  payment_cycle: 1M
//	  amount: 60000
type payeeSeed struct {
	Name          string `yaml:"name"`
	BankName      string `yaml:"bank_name"`
	AccountNumber string `yaml:"account_number"`
	OwnerName     string `yaml:"owner_name"`
	PaymentCycle  string `yaml:"payment_cycle"`
	Amount        string `yaml:"amount"`
}

func (l *DefaultLoader) Load(ctx context.Context) (*core.Snapshot, error) {
	s := core.NewSnapshot()
	if l.seedPath == "" {
		return s, nil
	}
	raw, err := os.ReadFile(l.seedPath)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read payee seed %s: %w", l.seedPath, err)
	}
	var seeds []payeeSeed
	if err := yaml.Unmarshal(raw, &seeds); err != nil {
		return nil, fmt.Errorf("parse payee seed %s: %w", l.seedPath, err)
	}
	now := core.Now()
	for _, seed := range seeds {
		p := core.Payee{
			Name:          core.CleanText(seed.Name),
			BankName:      core.CleanText(seed.BankName),
			AccountNumber: seed.AccountNumber,
			OwnerName:     core.CleanText(seed.OwnerName),
			PaymentCycle:  core.Cycle(seed.PaymentCycle),
			Amount:        core.ParseAmount(seed.Amount),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if p.Name == "" || p.OwnerName == "" {
			continue
		}
		s.AddPayee(p)
	}
	return s, nil
}
