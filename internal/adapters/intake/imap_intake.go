package intake

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"go.uber.org/zap"
)

// IMAPOptions configures the mailbox poller
type IMAPOptions struct {
	Address      string
	TLS          bool
	Username     string
	Password     string
	Mailbox      string
	PollInterval time.Duration
}

// IMAPIntake polls a mailbox for unseen messages, triages them and marks them \Seen
type IMAPIntake struct {
	processor Processor
	opts      IMAPOptions
	logger    *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewIMAPIntake creates an IMAP poller
func NewIMAPIntake(processor Processor, opts IMAPOptions, logger *zap.Logger) *IMAPIntake {
	if opts.Mailbox == "" {
		opts.Mailbox = "INBOX"
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Minute
	}
	return &IMAPIntake{
		processor: processor,
		opts:      opts,
		logger:    logger.Named("imap_intake"),
	}
}

// Start polls immediately and then every poll interval until Stop
func (i *IMAPIntake) Start(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.cancel != nil {
		return errors.New("IMAP intake already started")
	}
	ctx, i.cancel = context.WithCancel(ctx)

	i.logger.Info("IMAP intake starting",
		zap.String("address", i.opts.Address),
		zap.String("mailbox", i.opts.Mailbox),
		zap.Duration("poll_interval", i.opts.PollInterval))

	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		ticker := time.NewTicker(i.opts.PollInterval)
		defer ticker.Stop()

		for {
			if n, err := i.Poll(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				i.logger.Error("Mailbox poll failed", zap.Error(err))
			} else if n > 0 {
				i.logger.Info("Mailbox poll complete", zap.Int("messages", n))
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return nil
}

// Stop ends polling and waits for the current poll to finish
func (i *IMAPIntake) Stop() error {
	i.mu.Lock()
	cancel := i.cancel
	i.cancel = nil
	i.mu.Unlock()

	if cancel != nil {
		cancel()
		i.wg.Wait()
	}
	return nil
}

// Poll triages every unseen message once and returns how many were handled.
// Each message is marked \Seen as soon as it has been processed; a cancelled
// context stops the poll between messages.
func (i *IMAPIntake) Poll(ctx context.Context) (int, error) {
	c, err := i.dial()
	if err != nil {
		return 0, err
	}
	defer c.Logout()

	// Unblock network calls when the context ends
	stop := context.AfterFunc(ctx, func() { c.Terminate() })
	defer stop()

	if err := c.Login(i.opts.Username, i.opts.Password); err != nil {
		return 0, fmt.Errorf("IMAP login failed: %w", err)
	}
	if _, err := c.Select(i.opts.Mailbox, false); err != nil {
		return 0, fmt.Errorf("failed to select mailbox %s: %w", i.opts.Mailbox, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return 0, fmt.Errorf("failed to search mailbox: %w", err)
	}
	if len(uids) == 0 {
		return 0, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 10)
	fetchErr := make(chan error, 1)
	go func() {
		fetchErr <- c.UidFetch(seqset, items, messages)
	}()

	var fetched []*imap.Message
	for msg := range messages {
		fetched = append(fetched, msg)
	}
	if err := <-fetchErr; err != nil {
		return 0, fmt.Errorf("failed to fetch messages: %w", err)
	}

	// From here on the connection must outlive cancellation so that every
	// processed message is also marked \Seen
	if !stop() {
		return 0, ctx.Err()
	}

	count := 0
	for _, msg := range fetched {
		if err := ctx.Err(); err != nil {
			return count, err
		}

		body := msg.GetBody(section)
		if body == nil {
			i.logger.Warn("Message has no body", zap.Uint32("uid", msg.Uid))
		} else if raw, err := ParseMessage(body, fmt.Sprintf("imap-%d", msg.Uid)); err != nil {
			i.logger.Warn("Skipping unparsable message", zap.Uint32("uid", msg.Uid), zap.Error(err))
		} else {
			logResult(i.logger, i.processor.Process(context.WithoutCancel(ctx), raw))
			count++
		}

		if err := markSeen(c, msg.Uid); err != nil {
			return count, err
		}
	}
	return count, nil
}

func markSeen(c *client.Client, uid uint32) error {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := c.UidStore(seqset, item, []interface{}{imap.SeenFlag}, nil); err != nil {
		return fmt.Errorf("failed to mark message %d seen: %w", uid, err)
	}
	return nil
}

func (i *IMAPIntake) dial() (*client.Client, error) {
	if i.opts.TLS {
		host, _, err := net.SplitHostPort(i.opts.Address)
		if err != nil {
			return nil, fmt.Errorf("invalid IMAP address %s: %w", i.opts.Address, err)
		}
		c, err := client.DialTLS(i.opts.Address, &tls.Config{ServerName: host})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
		}
		return c, nil
	}

	c, err := client.Dial(i.opts.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}
	return c, nil
}
