// Package demo runs the scripted tour of the session operations used by the
// kvsession demo command.
package demo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aretw0/kvsession/internal/logging"
	"github.com/aretw0/kvsession/pkg/domain"
	"github.com/aretw0/kvsession/pkg/session"
)

// Keys are the keys written by the demo and removed at cleanup.
var Keys = []string{"framework", "key", "tech-stack", "event", "friends", "cast", "non-existent", "hello", "counter", "hash key"}

// Options tunes the two demo timers.
type Options struct {
	// PollInterval is how often the expiring key is read back.
	PollInterval time.Duration

	// ExpireAfter is the TTL given to the expiring key.
	ExpireAfter time.Duration

	// CleanupAfter is measured from the start of the run. Cleanup also waits for the poller.
	CleanupAfter time.Duration

	Logger *slog.Logger
}

// DefaultOptions polls every second for a key expiring after 10s and cleans up after 12.5s.
func DefaultOptions() Options {
	return Options{
		PollInterval: time.Second,
		ExpireAfter:  10 * time.Second,
		CleanupAfter: 12500 * time.Millisecond,
	}
}

// Report holds what the demo read back from the store.
type Report struct {
	Framework     string            `json:"framework"`
	Key           string            `json:"key"`
	TechStack     map[string]string `json:"tech_stack"`
	NestedError   string            `json:"nested_error"`
	Event         map[string]string `json:"event"`
	Friends       [][]string        `json:"friends"`
	Cast          []string          `json:"cast"`
	NonExistent   bool              `json:"non_existent_found"`
	HelloPolls    int               `json:"hello_polls"`
	Counter       []int64           `json:"counter"`
	HashKey       map[string]string `json:"hash_key"`
	HashKeyFields []string          `json:"hash_key_fields"`
	Removed       int64             `json:"removed"`
}

type step struct {
	name string
	run  func(ctx context.Context) error
}

type runner struct {
	sess   *session.Session
	opts   Options
	logger *slog.Logger
	report Report
}

// Run replays the demo on a Ready session, then deletes the demo keys and closes the session.
func Run(ctx context.Context, sess *session.Session, opts Options) (*Report, error) {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	r := &runner{sess: sess, opts: opts, logger: opts.Logger}
	cleanup := time.NewTimer(opts.CleanupAfter)
	defer cleanup.Stop()

	steps := []step{
		{"strings", r.stringPairs},
		{"hash", r.hash},
		{"nested hash", r.nested},
		{"list", r.list},
		{"set", r.set},
		{"missing key", r.missing},
		{"delete", r.delete},
	}
	for _, s := range steps {
		if err := s.run(ctx); err != nil {
			return &r.report, fmt.Errorf("demo step %q: %w", s.name, err)
		}
	}

	type pollResult struct {
		polls int
		err   error
	}
	polled := make(chan pollResult, 1)
	go func() {
		polls, err := r.expiring(ctx)
		polled <- pollResult{polls, err}
	}()

	for _, s := range []step{{"counter", r.counter}, {"hash keys", r.hashKeys}} {
		if err := s.run(ctx); err != nil {
			return &r.report, fmt.Errorf("demo step %q: %w", s.name, err)
		}
	}

	res := <-polled
	r.report.HelloPolls = res.polls
	if res.err != nil {
		return &r.report, fmt.Errorf("demo step %q: %w", "expiry", res.err)
	}
	select {
	case <-ctx.Done():
		return &r.report, ctx.Err()
	case <-cleanup.C:
	}

	if err := r.cleanup(ctx); err != nil {
		return &r.report, fmt.Errorf("demo cleanup: %w", err)
	}
	return &r.report, nil
}

func (r *runner) stringPairs(ctx context.Context) error {
	if _, err := r.sess.SetString(ctx, "framework", "Spring", 0).Await(ctx); err != nil {
		return err
	}
	if _, err := r.sess.SetString(ctx, "key", "value", 0).Await(ctx); err != nil {
		return err
	}
	r.logger.Debug("Key-value pairs saved")

	framework, err := r.sess.GetString(ctx, "framework").Await(ctx)
	if err != nil {
		return err
	}
	key, err := r.sess.GetString(ctx, "key").Await(ctx)
	if err != nil {
		return err
	}
	r.report.Framework = framework.Value
	r.report.Key = key.Value
	r.logger.Debug("Retrieved strings", "framework", framework.Value, "key", key.Value)
	return nil
}

func (r *runner) hash(ctx context.Context) error {
	_, err := r.sess.SetHashFields(ctx, "tech-stack", map[string]any{
		"backend":  "Spring",
		"frontend": "AngularJS",
		"database": "Postgres",
		"cache":    "Redis",
	}).Await(ctx)
	if err != nil {
		return err
	}
	fields, err := r.sess.GetHash(ctx, "tech-stack").Await(ctx)
	if err != nil {
		return err
	}
	r.report.TechStack = fields
	r.logger.Debug("Retrieved hash", "key", "tech-stack", "fields", fields)
	return nil
}

// nested stores an object holding another object, which hashes cannot represent.
func (r *runner) nested(ctx context.Context) error {
	code := map[string]any{
		"id":      555,
		"message": "Nested objects are not supported",
	}
	_, err := r.sess.SetHashFields(ctx, "event", map[string]any{
		"type":        "Error",
		"description": "Error while storing in the store",
		"code":        code,
	}).Await(ctx)
	switch {
	case err == nil:
		return errors.New("nested object was accepted")
	case !errors.Is(err, domain.ErrInvalidValue):
		return err
	}
	r.report.NestedError = err.Error()
	r.logger.Debug("Nested object rejected", "err", err)

	event, err := r.sess.GetHash(ctx, "event").Await(ctx)
	if err != nil {
		return err
	}
	r.report.Event = event
	r.logger.Debug("Retrieved hash", "key", "event", "fields", event)
	return nil
}

func (r *runner) list(ctx context.Context) error {
	pushes := []struct {
		values  []string
		atFront bool
	}{
		{[]string{"monica", "rachel", "phoebe"}, false},
		{[]string{"joey", "ross", "chandler"}, true},
	}
	for _, p := range pushes {
		if _, err := r.sess.PushList(ctx, "friends", p.values, p.atFront).Await(ctx); err != nil {
			return err
		}
		friends, err := r.sess.RangeList(ctx, "friends", 0, -1).Await(ctx)
		if err != nil {
			return err
		}
		r.report.Friends = append(r.report.Friends, friends)
		r.logger.Debug("Retrieved list", "key", "friends", "values", friends)
	}
	return nil
}

func (r *runner) set(ctx context.Context) error {
	if _, err := r.sess.AddToSet(ctx, "cast", []string{"peter", "saul", "carrie", "peter"}).Await(ctx); err != nil {
		return err
	}
	cast, err := r.sess.SetMembers(ctx, "cast").Await(ctx)
	if err != nil {
		return err
	}
	r.report.Cast = cast
	r.logger.Debug("Retrieved set", "key", "cast", "members", cast)
	return nil
}

func (r *runner) missing(ctx context.Context) error {
	got, err := r.sess.GetString(ctx, "non-existent").Await(ctx)
	if err != nil {
		return err
	}
	r.report.NonExistent = got.Found
	if !got.Found {
		r.logger.Debug("The key was not found in the store", "key", "non-existent")
	}
	return nil
}

func (r *runner) delete(ctx context.Context) error {
	for _, key := range []string{"cast", "friends"} {
		if _, err := r.sess.Delete(ctx, key).Await(ctx); err != nil {
			return err
		}
		r.logger.Debug("Key removed", "key", key)
	}
	return nil
}

// expiring sets a key with a TTL and reads it back every PollInterval until it
// is gone. It returns how many polls still found the key.
func (r *runner) expiring(ctx context.Context) (int, error) {
	if _, err := r.sess.SetString(ctx, "hello", "world", 0).Await(ctx); err != nil {
		return 0, err
	}
	if _, err := r.sess.Expire(ctx, "hello", r.opts.ExpireAfter).Await(ctx); err != nil {
		return 0, err
	}

	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()
	polls := 0
	for {
		select {
		case <-ctx.Done():
			return polls, ctx.Err()
		case <-ticker.C:
		}
		got, err := r.sess.GetString(ctx, "hello").Await(ctx)
		if err != nil {
			return polls, err
		}
		if !got.Found {
			r.logger.Debug("Key no longer in the store", "key", "hello", "polls", polls)
			return polls, nil
		}
		polls++
		r.logger.Debug("Key still present", "key", "hello", "value", got.Value)
	}
}

func (r *runner) counter(ctx context.Context) error {
	if _, err := r.sess.SetString(ctx, "counter", "0", 0).Await(ctx); err != nil {
		return err
	}
	n, err := r.sess.Increment(ctx, "counter", 1).Await(ctx)
	if err != nil {
		return err
	}
	r.report.Counter = append(r.report.Counter, n)

	read, err := r.sess.GetString(ctx, "counter").Await(ctx)
	if err != nil {
		return err
	}
	current, err := strconv.ParseInt(read.Value, 10, 64)
	if err != nil {
		return fmt.Errorf("counter holds %q: %w", read.Value, err)
	}
	r.report.Counter = append(r.report.Counter, current)

	n, err = r.sess.Increment(ctx, "counter", 5).Await(ctx)
	if err != nil {
		return err
	}
	r.report.Counter = append(r.report.Counter, n)
	r.logger.Debug("Counter updated", "key", "counter", "values", r.report.Counter)
	return nil
}

func (r *runner) hashKeys(ctx context.Context) error {
	fields := map[string]string{"hashvalue1": "hasprop1", "hashvalue2": "hasprop2"}
	r.report.HashKey = make(map[string]string, len(fields))
	for _, name := range []string{"hashvalue1", "hashvalue2"} {
		if _, err := r.sess.SetHashField(ctx, "hash key", name, fields[name]).Await(ctx); err != nil {
			return err
		}
		got, err := r.sess.GetHashField(ctx, "hash key", name).Await(ctx)
		if err != nil {
			return err
		}
		r.report.HashKey[name] = got.Value
	}

	names, err := r.sess.HashKeys(ctx, "hash key").Await(ctx)
	if err != nil {
		return err
	}
	r.report.HashKeyFields = names
	r.logger.Debug("Retrieved hash fields", "key", "hash key", "fields", names)
	return nil
}

func (r *runner) cleanup(ctx context.Context) error {
	r.logger.Debug("Keys being deleted", "keys", Keys)
	for _, key := range Keys {
		ack, err := r.sess.Delete(ctx, key).Await(ctx)
		if err != nil {
			return fmt.Errorf("could not delete %q: %w", key, err)
		}
		r.report.Removed += ack.Affected
	}
	return r.sess.Close()
}
