package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/garage-backend/internal/invoices"
	"github.com/angelmondragon/garage-backend/pkg/logger"
)

type invoiceNumberReader interface {
	HighestNumber(ctx context.Context, prefix string) (string, error)
}

type sequenceRaiser interface {
	RaiseSequence(ctx context.Context, name string, floor int64) (bool, error)
}

// InvoiceSequenceJob keeps the invoice counter ahead of every number already stored, so a
// flushed or restored redis cannot hand out a duplicate invoice number.
type InvoiceSequenceJob struct {
	logg    *logger.Logger
	numbers invoiceNumberReader
	seq     sequenceRaiser
	prefix  string
}

func NewInvoiceSequenceJob(logg *logger.Logger, numbers invoiceNumberReader, seq sequenceRaiser, prefix string) (*InvoiceSequenceJob, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if numbers == nil || seq == nil {
		return nil, fmt.Errorf("invoice repository and sequencer required")
	}
	if prefix == "" {
		return nil, fmt.Errorf("invoice prefix required")
	}
	return &InvoiceSequenceJob{logg: logg, numbers: numbers, seq: seq, prefix: prefix}, nil
}

func (j *InvoiceSequenceJob) Name() string { return "invoice-sequence-floor" }

func (j *InvoiceSequenceJob) Run(ctx context.Context) error {
	highest, err := j.numbers.HighestNumber(ctx, j.prefix)
	if err != nil {
		return fmt.Errorf("read highest invoice number: %w", err)
	}
	if highest == "" {
		return nil
	}
	n, ok := invoices.ParseNumber(j.prefix, highest)
	if !ok {
		return fmt.Errorf("unparseable invoice number %q", highest)
	}
	raised, err := j.seq.RaiseSequence(ctx, invoices.SequenceName, n)
	if err != nil {
		return fmt.Errorf("raise invoice sequence: %w", err)
	}
	if raised {
		j.logg.Warn(j.logg.WithField(ctx, "floor", n), "invoice.sequence.raised")
	}
	return nil
}
