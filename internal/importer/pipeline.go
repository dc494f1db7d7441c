package importer

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/emersion/go-message/mail"

	"github.com/tracyhatemice/mailimport/internal/mailbox"
	"github.com/tracyhatemice/mailimport/internal/message"
	"github.com/tracyhatemice/mailimport/internal/whitelist"
)

// RunCycle implements host.Importer.
func (i *Importer) RunCycle(ctx context.Context) {
	i.Run(ctx)
}

// Run performs one import cycle against a snapshot of the inbox. It never
// panics and never returns an error; the summary reports what happened.
func (i *Importer) Run(ctx context.Context) (sum Summary) {
	if i.disabled {
		i.logger.Warn("importer is in dirty state, skipping cycle")
		return Summary{Disabled: true}
	}

	defer func() {
		if r := recover(); r != nil {
			sum.Err = fmt.Errorf("import cycle panicked: %v", r)
			i.logger.Error("mail import failed", "error", sum.Err, "stack", string(debug.Stack()))
		}
	}()

	sess, err := i.dialer.Open(ctx)
	if err != nil {
		i.logger.Error("mailbox connection failed", "error", err)
		sum.Err = err
		return sum
	}
	defer func() {
		if err := sess.Close(); err != nil {
			i.logger.Warn("mailbox close failed", "error", err)
		}
	}()

	refs, err := sess.List()
	if err != nil {
		i.logger.Error("mailbox listing failed", "error", err)
		sum.Err = err
		return sum
	}
	sum.Total = len(refs)

	for _, ref := range refs {
		sum.add(i.process(ctx, sess, ref))
	}

	i.logger.Info("mail loaded",
		"total", sum.Total,
		"accepted", sum.Accepted,
		"skipped", sum.Skipped,
		"failed", sum.Failed,
	)
	return sum
}

// process evaluates one message and, when a sender is whitelisted, emits
// its record and applies the post-action.
func (i *Importer) process(ctx context.Context, sess mailbox.Session, ref mailbox.Ref) Result {
	fail := func(sender string, stage string, err error) Result {
		i.logger.Error("message "+stage+" failed", "ref", ref, "from", sender, "error", err)
		return Result{Ref: ref, Outcome: OutcomeFailed, Sender: sender, Err: fmt.Errorf("%s: %w", stage, err)}
	}

	raw, err := sess.Retrieve(ref)
	if err != nil {
		return fail("", "retrieve", err)
	}

	env, err := mailbox.ParseHeader(raw)
	if err != nil {
		return fail("", "parse", err)
	}
	if env.SenderErr != nil && i.settings.AuditLog {
		i.logger.Debug("sender header partly unreadable", "ref", ref, "error", env.SenderErr)
	}

	sender, entry, ok := i.match(env.Senders)
	if !ok {
		if i.settings.AuditLog {
			i.logger.Debug("sender not whitelisted", "ref", ref, "from", addresses(env.Senders))
		}
		return Result{Ref: ref, Outcome: OutcomeSkipped}
	}

	body, err := mailbox.ReadBody(raw)
	if err != nil {
		return fail(sender.Address, "parse", err)
	}

	rec := i.buildRecord(env, body, sender, entry)
	if err := i.sink.Add(ctx, i.name, Kind, rec); err != nil {
		return fail(sender.Address, "emit", err)
	}

	if i.archive != nil {
		if err := i.archive.Append(sender.Address, env.Date, raw); err != nil {
			i.logger.Warn("message archive failed", "ref", ref, "error", err)
		}
	}

	if err := i.applyPostAction(sess, ref); err != nil {
		return fail(sender.Address, "post-action", err)
	}

	if i.settings.AuditLog {
		i.logger.Info("imported mail", "from", sender.Address, "ref", ref, "record", rec.ID)
	}
	return Result{Ref: ref, Outcome: OutcomeAccepted, Sender: sender.Address, RecordID: rec.ID}
}

// match returns the first sender present in the whitelist.
func (i *Importer) match(senders []*mail.Address) (*mail.Address, *whitelist.Entry, bool) {
	for _, s := range senders {
		if s == nil {
			continue
		}
		if entry, ok := i.whitelist.Lookup(s.Address); ok {
			return s, entry, true
		}
	}
	return nil, nil, false
}

func (i *Importer) buildRecord(env *mailbox.Envelope, body string, sender *mail.Address, entry *whitelist.Entry) *message.Record {
	rec := message.New(env.Subject, body)
	rec.Sender = sender.Address

	rec.ReceivedAt = env.Date
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = i.now()
	}

	switch {
	case entry != nil && entry.Copyright != "":
		rec.Copyright = entry.Copyright
	case sender.Name != "":
		rec.Copyright = sender.Name
	default:
		rec.Copyright = sender.Address
	}

	switch {
	case entry != nil && len(entry.Directories) > 0:
		rec.Directories = append([]string(nil), entry.Directories...)
	case i.settings.FallbackDir != "":
		rec.Directories = []string{i.settings.FallbackDir}
	}
	return rec
}

func (i *Importer) applyPostAction(sess mailbox.Session, ref mailbox.Ref) error {
	switch i.settings.PostAction {
	case PostActionDelete:
		return sess.Delete(ref)
	default:
		return sess.MarkRead(ref)
	}
}

func addresses(list []*mail.Address) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		if a != nil {
			out = append(out, a.Address)
		}
	}
	return out
}
