package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/dhcgn/flight-price-tracker/config"
	"github.com/dhcgn/flight-price-tracker/extract"
	"github.com/dhcgn/flight-price-tracker/filter"
	"github.com/dhcgn/flight-price-tracker/mbox"
	"github.com/dhcgn/flight-price-tracker/model"
	"github.com/dhcgn/flight-price-tracker/stats"
)

// Census is what scan learns about a mailbox without extracting prices.
type Census struct {
	Messages    int
	Filtered    int
	Undecodable int
	Layouts     map[string]int
	Subjects    map[string]int
	Senders     map[string]int
}

func newCensus() *Census {
	return &Census{
		Layouts:  make(map[string]int),
		Subjects: make(map[string]int),
		Senders:  make(map[string]int),
	}
}

func (c *Census) add(env model.Envelope) {
	switch {
	case env.Err != nil:
		c.Undecodable++
		return
	case env.Filtered:
		c.Filtered++
		return
	}

	c.Messages++
	c.Layouts[extract.Detect(env.Message.Body).String()]++
	if env.Message.Subject != "" {
		c.Subjects[env.Message.Subject]++
	}
	if env.Message.From != "" {
		c.Senders[env.Message.From]++
	}
}

// NewScanCommand returns the scan subcommand: a layout census of the mailbox
// that writes no price outputs.
func NewScanCommand() *cobra.Command {
	var (
		mboxPath  string
		reportDir string
		topN      int
	)

	cmd := &cobra.Command{
		Use:   "scan [mbox file]",
		Short: "Count the alert layouts in an mbox file without extracting prices",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				mboxPath = args[0]
			}

			cfg, err := config.LoadFilters(cmd)
			if err != nil {
				return err
			}
			f, err := filter.New(filter.Options{
				IncludeHeader: cfg.IncludeHeader,
				IncludeBody:   cfg.IncludeBody,
				ExcludeHeader: cfg.ExcludeHeader,
				ExcludeBody:   cfg.ExcludeBody,
			})
			if err != nil {
				return fmt.Errorf("create filter: %w", err)
			}

			pterm.Info.Println("Scanning mbox file:", mboxPath)
			census, err := Scan(cmd.Context(), mboxPath, f)
			if err != nil {
				return err
			}

			printCensus(census, topN)

			if reportDir != "" {
				if err := saveCSVReports(census, reportDir, 1000); err != nil {
					return fmt.Errorf("save csv reports: %w", err)
				}
				pterm.Success.Println("Reports saved to directory:", reportDir)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&mboxPath, "mbox", config.DefaultMboxPath, "Path to the mbox file to scan")
	flags.StringVarP(&reportDir, "output", "o", "", "Also write CSV reports to this directory")
	flags.IntVarP(&topN, "top", "t", 10, "Number of top items to display")
	config.AddFilterFlags(flags)
	return cmd
}

// Scan walks the mailbox and tallies layouts, subjects and senders.
func Scan(ctx context.Context, path string, f *filter.Filter) (*Census, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	reader, err := mbox.NewReader(mbox.Options{Path: path, Filter: f}, nil)
	if err != nil {
		return nil, err
	}

	census := newCensus()
	err = reader.Stream(ctx, func(env model.Envelope) error {
		census.add(env)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan mbox: %w", err)
	}
	return census, nil
}

func printCensus(c *Census, topN int) {
	total := c.Messages + c.Filtered
	var filterPercent float64
	if total > 0 {
		filterPercent = float64(c.Filtered) / float64(total) * 100
	}
	pterm.DefaultSection.Println("Mailbox")
	fmt.Printf("Scanned %d messages (skipped %d by filters, %.2f%%, %d undecodable)\n\n",
		c.Messages, c.Filtered, filterPercent, c.Undecodable)

	fmt.Println("Layouts:")
	stats.PrettyPrintTop(c.Layouts, len(c.Layouts))
	fmt.Println()

	fmt.Printf("Top %d Subject:\n", topN)
	stats.PrettyPrintTop(c.Subjects, topN)
	fmt.Println()

	fmt.Printf("Top %d From:\n", topN)
	stats.PrettyPrintTop(c.Senders, topN)
}

func saveCSVReports(c *Census, dir string, limit int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	reports := []struct {
		name   string
		counts map[string]int
	}{
		{"layout", c.Layouts},
		{"subject", c.Subjects},
		{"from", c.Senders},
	}
	for _, r := range reports {
		if err := writeCounts(filepath.Join(dir, fmt.Sprintf("report_%s.csv", r.name)), r.counts, limit); err != nil {
			return err
		}
	}
	return nil
}

func writeCounts(path string, counts map[string]int, limit int) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"Value", "Count"}); err != nil {
		return err
	}

	type pair struct {
		Key   string
		Value int
	}
	var pairs []pair
	for k, v := range counts {
		pairs = append(pairs, pair{k, v})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Value != pairs[j].Value {
			return pairs[i].Value > pairs[j].Value
		}
		return pairs[i].Key < pairs[j].Key
	})

	for i := 0; i < limit && i < len(pairs); i++ {
		if err := writer.Write([]string{pairs[i].Key, strconv.Itoa(pairs[i].Value)}); err != nil {
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Close()
}
