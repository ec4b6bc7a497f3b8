package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/meigma/ferry"
)

var batchTUI bool

var batchCmd = &cobra.Command{
	Use:   "batch <manifest.yaml>",
	Short: "Run many transfers concurrently",
	Long: `Run every transfer listed in a YAML manifest at the same time.

Each entry names a kind (get or put), a url and a local path. Relative paths
are resolved against the manifest's directory. Put entries may carry
credentials as user:password.

  transfers:
    - kind: get
      url: https://example.com/a.bin
      path: a.bin
    - kind: put
      url: oci://localhost:5000/acme/b:v1
      path: b.bin

With --tui, progress is shown in an interactive terminal view; press q or
ctrl+c to cancel the remaining transfers.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeManifest,
	RunE:              runBatch,
}

func init() {
	batchCmd.Flags().BoolVar(&batchTUI, "tui", false, "Show an interactive progress view")
	rootCmd.AddCommand(batchCmd)
}

type itemStatus int

const (
	itemPending itemStatus = iota
	itemRunning
	itemDone
	itemFailed
)

// batchItem is the owner-side view of one manifest entry. It is only touched
// from ferry callbacks, so it needs no locking.
type batchItem struct {
	entry    manifestEntry
	status   itemStatus
	total    int64
	done     int64
	err      error
	transfer *ferry.Transfer
}

// batch tracks the items of a manifest run.
type batch struct {
	items    []*batchItem
	onChange func(*batchItem)
}

func newBatch(m *manifest, onChange func(*batchItem)) *batch {
	b := &batch{onChange: onChange}
	for _, e := range m.Transfers {
		b.items = append(b.items, &batchItem{entry: e, total: ferry.UnknownSize})
	}
	return b
}

// start launches every item. Items rejected synchronously are marked
// failed and do not stop the others.
func (b *batch) start(client *ferry.Client) {
	for _, item := range b.items {
		var (
			t   *ferry.Transfer
			err error
		)
		switch item.entry.Kind {
		case entryPut:
			t, err = client.Upload(item.entry.URL, item.entry.Path, item.entry.Credentials, ferry.UploadCallbacks{
				OnStarted:   b.started,
				OnProgress:  b.progress,
				OnCompleted: b.completed,
				OnFailed:    b.failed,
			}, item)
		default:
			t, err = client.Download(item.entry.URL, item.entry.Path, ferry.DownloadCallbacks{
				OnStarted:   b.started,
				OnProgress:  b.progress,
				OnCompleted: b.completed,
				OnFailed:    b.failed,
			}, item)
		}
		if err != nil {
			item.status = itemFailed
			item.err = err
			b.changed(item)
			continue
		}
		item.transfer = t
	}
}

// transfers returns the handles of every item that was started.
func (b *batch) transfers() []*ferry.Transfer {
	var out []*ferry.Transfer
	for _, item := range b.items {
		if item.transfer != nil {
			out = append(out, item.transfer)
		}
	}
	return out
}

// cancel cancels every running transfer.
func (b *batch) cancel() {
	for _, t := range b.transfers() {
		t.Cancel()
	}
}

// failures counts failed items.
func (b *batch) failures() int {
	n := 0
	for _, item := range b.items {
		if item.status == itemFailed {
			n++
		}
	}
	return n
}

// finished reports whether every item reached a terminal status.
func (b *batch) finished() bool {
	return b.unfinished() == 0
}

// unfinished counts items that have not reached a terminal status.
func (b *batch) unfinished() int {
	n := 0
	for _, item := range b.items {
		if item.status != itemDone && item.status != itemFailed {
			n++
		}
	}
	return n
}

func (b *batch) started(_, _ string, userData any) {
	item := userData.(*batchItem)
	item.status = itemRunning
	b.changed(item)
}

func (b *batch) progress(_, _ string, total, transferred int64, userData any) {
	item := userData.(*batchItem)
	item.total = total
	item.done = transferred
	b.changed(item)
}

func (b *batch) completed(_, _ string, userData any) {
	item := userData.(*batchItem)
	item.status = itemDone
	b.changed(item)
}

func (b *batch) failed(_, _ string, err error, userData any) {
	item := userData.(*batchItem)
	item.status = itemFailed
	item.err = err
	b.changed(item)
}

func (b *batch) changed(item *batchItem) {
	if b.onChange != nil {
		b.onChange(item)
	}
}

func runBatch(cmd *cobra.Command, args []string) error {
	m, err := loadManifest(args[0])
	if err != nil {
		return err
	}

	ferry.Init()
	defer ferry.Cleanup()

	client, err := newClient()
	if err != nil {
		return err
	}

	var b *batch
	if batchTUI {
		b = newBatch(m, nil)
		if err := runBatchTUI(cmd.Context(), client, b); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		b = newBatch(m, func(item *batchItem) { reportItem(out, item) })

		ctx, cancel := signalContext()
		defer cancel()

		b.start(client)
		await(ctx, client, b.transfers()...)
	}

	return summarizeBatch(cmd.OutOrStdout(), b)
}

// summarizeBatch reports the outcome of a batch that is no longer running.
func summarizeBatch(out io.Writer, b *batch) error {
	if !b.finished() {
		return fmt.Errorf("batch interrupted with %d of %d transfers unfinished", b.unfinished(), len(b.items))
	}
	if n := b.failures(); n > 0 {
		return fmt.Errorf("%d of %d transfers failed", n, len(b.items))
	}
	fmt.Fprintf(out, "%d transfers completed\n", len(b.items))
	return nil
}

// reportItem prints a line when an item reaches a terminal status.
func reportItem(w io.Writer, item *batchItem) {
	switch item.status {
	case itemDone:
		fmt.Fprintf(w, "ok    %s (%s)\n", item.entry.label(), humanSize(item.done))
	case itemFailed:
		fmt.Fprintf(w, "fail  %s: %s\n", item.entry.label(), formatError(item.err))
	}
}
