package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"office-action-orchestrator/internal/backend"
	"office-action-orchestrator/internal/domain"
)

type cliOptions struct {
	backendURL  string
	token       string
	timeout     time.Duration
	concurrency int
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "oactl",
		Short:         "Operator tooling for the office action backend",
		Long:          `oactl talks to the analysis backend directly. It signs in, checks rejection finalization and downloads response drafts without going through the orchestrator.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.backendURL, "backend-url", os.Getenv("BACKEND_BASE_URL"), "analysis backend base URL")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("OACTL_TOKEN"), "backend session token")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "per-call timeout")

	root.AddCommand(newLoginCmd(opts))
	root.AddCommand(newStatusCmd(opts))
	root.AddCommand(newDraftCmd(opts))
	root.AddCommand(newClaimsCmd())
	return root
}

func (o *cliOptions) client() (*backend.HTTPClient, error) {
	if strings.TrimSpace(o.backendURL) == "" {
		return nil, errors.New("--backend-url or BACKEND_BASE_URL is required")
	}
	return backend.NewHTTPClient(o.backendURL, o.timeout), nil
}

func (o *cliOptions) requireToken() error {
	if strings.TrimSpace(o.token) == "" {
		return errors.New("--token or OACTL_TOKEN is required")
	}
	return nil
}

func newLoginCmd(opts *cliOptions) *cobra.Command {
	var creds domain.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and print the backend session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := domain.ValidateInput(creds); err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			res, err := c.Login(cmd.Context(), creds)
			if err != nil {
				return explain(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&creds.Email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account password")
	return cmd
}

func newStatusCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [application-id] [rejection-id...]",
		Short: "Check whether each rejection of an application is finalized",
		Long:  `Queries the backend finalization status of every named rejection and prints the aggregate as JSON. Rejections whose status cannot be read are listed as unresolved.`,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireToken(); err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			status, err := checkRejections(cmd.Context(), c, opts.token, args[0], args[1:], opts.concurrency)
			if err != nil {
				return explain(err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(status)
		},
	}
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 4, "parallel status calls")
	return cmd
}

type rejectionStatusClient interface {
	RejectionStatus(ctx context.Context, token, applicationID, rejectionID string) (bool, error)
}

func checkRejections(ctx context.Context, c rejectionStatusClient, token, applicationID string, rejectionIDs []string, concurrency int) (domain.FinalizationStatus, error) {
	var (
		mu       sync.Mutex
		resolved = make(map[string]bool, len(rejectionIDs))
	)
	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for _, id := range rejectionIDs {
		g.Go(func() error {
			finalized, err := c.RejectionStatus(gctx, token, applicationID, id)
			if err != nil {
				if errors.Is(err, domain.ErrSessionInvalid) {
					return err
				}
				return nil
			}
			mu.Lock()
			resolved[id] = finalized
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.FinalizationStatus{}, err
	}
	return domain.AggregateFinalization(applicationID, rejectionIDs, resolved, time.Now().UTC()), nil
}

func newDraftCmd(opts *cliOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "draft [application-id]",
		Short: "Generate the response draft and write it to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireToken(); err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			doc, err := c.GenerateDraft(cmd.Context(), opts.token, args[0])
			if err != nil {
				return explain(err)
			}
			if out == "" {
				out = args[0] + "-response.docx"
			}
			if err := os.WriteFile(out, doc, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", len(doc), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "destination file (default <application-id>-response.docx)")
	return cmd
}

func newClaimsCmd() *cobra.Command {
	claims := &cobra.Command{
		Use:   "claims",
		Short: "Claim number helpers",
	}
	claims.AddCommand(&cobra.Command{
		Use:   "format [claim numbers...]",
		Short: "Collapse claim numbers into ranges, e.g. 1,2,3,5 becomes 1-3, 5",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nums, err := parseClaimNumbers(args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), domain.FormatClaimRanges(nums))
			return nil
		},
	})
	return claims
}

// parseClaimNumbers accepts both separate arguments and comma lists.
func parseClaimNumbers(args []string) ([]int, error) {
	var nums []int
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.Atoi(part)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("invalid claim number %q", part)
			}
			nums = append(nums, n)
		}
	}
	return nums, nil
}

func explain(err error) error {
	var reqErr *backend.RequestError
	switch {
	case errors.Is(err, domain.ErrSessionInvalid):
		return errors.New("session expired, run oactl login again")
	case errors.As(err, &reqErr):
		return errors.New(reqErr.Message)
	default:
		return err
	}
}
