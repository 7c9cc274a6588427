package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/xraph/ecoseed"
	"github.com/xraph/ecoseed/category"
	"github.com/xraph/ecoseed/entry"
)

var asJSON bool

func init() {
	rootCmd.AddCommand(migrateCmd, balanceCmd, earnCmd, spendCmd, convertCmd,
		historyCmd, verifyCmd, categoriesCmd)

	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Print results as JSON")

	for _, c := range []*cobra.Command{earnCmd, spendCmd} {
		c.Flags().StringP("description", "d", "", "Entry description")
	}
	historyCmd.Flags().Int("page", 0, "Zero-based page number")
	historyCmd.Flags().Int("size", 0, "Page size (0 uses the configured default)")
	historyCmd.Flags().String("category", "", "Only show entries of this category")
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the store schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withLedger(cmd, func(_ context.Context, _ *ecoseed.Ledger) error {
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		})
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance MEMBER",
	Short: "Show a member's balances and totals",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(cmd, func(ctx context.Context, l *ecoseed.Ledger) error {
			s, err := l.Summary(ctx, args[0])
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), s)
		})
	},
}

var earnCmd = &cobra.Command{
	Use:   "earn MEMBER CATEGORY AMOUNT",
	Short: "Credit Eco-Seeds for an earning category",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, amount, err := parsePosting(args[1], args[2])
		if err != nil {
			return err
		}
		desc, _ := cmd.Flags().GetString("description")
		return withLedger(cmd, func(ctx context.Context, l *ecoseed.Ledger) error {
			s, err := l.Earn(ctx, args[0], ecoseed.EarnInput{Category: c, Amount: amount, Description: desc})
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), s)
		})
	},
}

var spendCmd = &cobra.Command{
	Use:   "spend MEMBER CATEGORY AMOUNT",
	Short: "Debit Eco-Seeds for a use category",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, amount, err := parsePosting(args[1], args[2])
		if err != nil {
			return err
		}
		desc, _ := cmd.Flags().GetString("description")
		return withLedger(cmd, func(ctx context.Context, l *ecoseed.Ledger) error {
			s, err := l.Spend(ctx, args[0], ecoseed.SpendInput{Category: c, Amount: amount, Description: desc})
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), s)
		})
	},
}

var convertCmd = &cobra.Command{
	Use:   "convert MEMBER AMOUNT",
	Short: "Convert Eco-Seeds into the secondary currency",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", args[1], err)
		}
		return withLedger(cmd, func(ctx context.Context, l *ecoseed.Ledger) error {
			s, err := l.Convert(ctx, args[0], amount)
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), s)
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history MEMBER",
	Short: "List a member's postings, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		size, _ := cmd.Flags().GetInt("size")
		cat, _ := cmd.Flags().GetString("category")
		return withLedger(cmd, func(ctx context.Context, l *ecoseed.Ledger) error {
			if cat != "" {
				c, err := category.Parse(cat)
				if err != nil {
					return err
				}
				entries, err := l.HistoryByCategory(ctx, args[0], c)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), entries)
				}
				return printEntries(cmd.OutOrStdout(), entries)
			}

			hp, err := l.History(ctx, args[0], ecoseed.PageRequest{Page: page, Size: size})
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), hp)
			}
			if err := printEntries(cmd.OutOrStdout(), hp.Entries); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d (%d entries)\n", hp.Page+1, hp.TotalPages, hp.TotalElements)
			return nil
		})
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify MEMBER",
	Short: "Check a member's balance against the transaction log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(cmd, func(ctx context.Context, l *ecoseed.Ledger) error {
			v, err := l.Verify(ctx, args[0])
			if v != nil {
				if asJSON {
					if perr := printJSON(cmd.OutOrStdout(), v); perr != nil {
						return perr
					}
				} else {
					fmt.Fprintf(cmd.OutOrStdout(),
						"balance=%d log_sum=%d last_balance_after=%d entries=%d consistent=%t\n",
						v.Balance, v.LogSum, v.LastBalanceAfter, v.Entries, v.Consistent)
				}
			}
			return err
		})
	},
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the point categories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		infos := category.All()
		if asJSON {
			return printJSON(cmd.OutOrStdout(), infos)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "CODE\tLABEL\tSIDE")
		for _, info := range infos {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", info.Code, info.Label, info.Side)
		}
		return tw.Flush()
	},
}

// withLedger runs fn against a started ledger and stops it afterwards.
func withLedger(cmd *cobra.Command, fn func(context.Context, *ecoseed.Ledger) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	l, err := openLedger(ctx, cfg, newLogger(cfg, cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	runErr := fn(ctx, l)
	if err := l.Stop(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func parsePosting(cat, amount string) (category.Category, int64, error) {
	c, err := category.Parse(cat)
	if err != nil {
		return "", 0, err
	}
	n, err := strconv.ParseInt(amount, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	return c, n, nil
}

func printSummary(w io.Writer, s *ecoseed.Summary) error {
	if asJSON {
		return printJSON(w, s)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "member\t%s\n", s.MemberRef)
	fmt.Fprintf(tw, "balance\t%d\n", s.CurrentBalance)
	fmt.Fprintf(tw, "total earned\t%d\n", s.TotalEarned)
	fmt.Fprintf(tw, "total used\t%d\n", s.TotalUsed)
	fmt.Fprintf(tw, "total converted\t%d\n", s.TotalConverted)
	fmt.Fprintf(tw, "earned this month\t%d\n", s.CurrentMonthEarned)
	fmt.Fprintf(tw, "secondary balance\t%d\n", s.SecondaryBalance)
	return tw.Flush()
}

func printEntries(w io.Writer, entries []*entry.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tOCCURRED\tCATEGORY\tAMOUNT\tBALANCE\tDESCRIPTION")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%+d\t%d\t%s\n",
			e.Sequence, e.OccurredAt.Format(time.DateTime), e.Category, e.Amount, e.BalanceAfter, e.Description)
	}
	return tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
