package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/librarydesk/librarydesk/internal/entities"
	"github.com/librarydesk/librarydesk/internal/entrypoint"
	"github.com/librarydesk/librarydesk/internal/services"
)

const (
	notifyKindOverdue = "overdue"
	notifyKindDueSoon = "due-soon"
	notifyKindAll     = "all"
)

type notifyOptions struct {
	commonFlags
	kind   string
	dryRun bool
}

func newNotifyCommand() *cobra.Command {
	var opts notifyOptions
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send overdue notices and due-soon reminders once",
		Long: `Compute the overdue and due-soon digests and hand them to the configured
sender (NOTIFY_SENDER). Useful from an external cron when the built-in
schedule is disabled.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd)
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVar(&opts.kind, "kind", notifyKindAll, "Digest to send: overdue, due-soon or all")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print the digests without sending them")
	return cmd
}

func (o *notifyOptions) run(cmd *cobra.Command) error {
	kind := strings.ToLower(strings.TrimSpace(o.kind))
	switch kind {
	case notifyKindOverdue, notifyKindDueSoon, notifyKindAll:
	default:
		return fmt.Errorf("unknown --kind %q (want overdue, due-soon or all)", o.kind)
	}

	app, err := entrypoint.NewApp(o.config())
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	if kind != notifyKindDueSoon {
		if err := o.runKind(ctx, out, notifyKindOverdue, app.Notifications.OverdueDigests, app.Notifications.SendOverdue); err != nil {
			return err
		}
	}
	if kind != notifyKindOverdue {
		if err := o.runKind(ctx, out, notifyKindDueSoon, app.Notifications.DueSoonDigests, app.Notifications.SendReminders); err != nil {
			return err
		}
	}
	return nil
}

func (o *notifyOptions) runKind(
	ctx context.Context,
	out io.Writer,
	label string,
	preview func(context.Context) ([]entities.UserDigest, int, error),
	send func(context.Context) (*services.DispatchResult, error),
) error {
	if o.dryRun {
		digests, total, err := preview(ctx)
		if err != nil {
			return fmt.Errorf("%s digests: %w", label, err)
		}
		fmt.Fprintf(out, "%s: %d user(s), %d book(s)\n", label, len(digests), total)
		for _, d := range digests {
			fmt.Fprintf(out, "  %s <%s>: %d book(s)\n", d.UserName, d.UserEmail, len(d.Books))
		}
		return nil
	}

	result, err := send(ctx)
	if err != nil {
		return fmt.Errorf("send %s: %w", label, err)
	}
	fmt.Fprintf(out, "%s: %d user(s), %d book(s), %d sent, %d failed\n",
		label, len(result.Digests), result.TotalBooks, result.Dispatched, result.Failed)
	return nil
}
