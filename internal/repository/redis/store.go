package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hospiq/patient-queue/internal/models"
	"github.com/hospiq/patient-queue/internal/repository"
	"github.com/hospiq/patient-queue/pkg/logger"
)

// Store keeps one JSON record per entry plus, per department, a waiting sorted
// set (score = selection order), a serving set and an id index. Every status
// transition runs as a single Lua script so concurrent staff terminals can
// never claim the same entry or overrun the serving-slot cap.
type Store struct {
	cli      *redis.Client
	l        logger.Logger
	entryTTL time.Duration
}

func NewStore(cli *redis.Client, l logger.Logger, entryTTL time.Duration) *Store {
	return &Store{
		cli:      cli,
		l:        l,
		entryTTL: entryTTL,
	}
}

// Waiting-set members are "<seq>|<id>" with a zero-padded sequence so that
// equal scores fall back to queue-number order (zset ties sort lexically).
func member(e *models.QueueEntry) string {
	seq, err := models.QueueNumberSeq(e.QueueNumber)
	if err != nil {
		seq = 0
	}
	return fmt.Sprintf("%06d|%s", seq, e.ID)
}

func memberID(m string) string {
	if i := strings.IndexByte(m, '|'); i >= 0 {
		return m[i+1:]
	}
	return m
}

var claimScript = redis.NewScript(`
	local waiting = KEYS[1]
	local serving = KEYS[2]
	local slots = tonumber(ARGV[1])
	local prefix = ARGV[2]

	if redis.call('SCARD', serving) >= slots then
		return false
	end

	while true do
		local popped = redis.call('ZPOPMIN', waiting)
		if #popped == 0 then
			return false
		end

		local sep = string.find(popped[1], '|', 1, true)
		local id = string.sub(popped[1], sep + 1)
		local raw = redis.call('GET', prefix .. id)
		if raw then
			local e = cjson.decode(raw)
			e.status = 'serving'
			e.called_at = ARGV[3]
			e.served_by = ARGV[4]
			redis.call('SADD', serving, id)
			redis.call('SET', prefix .. id, cjson.encode(e), 'KEEPTTL')
			return cjson.encode(e)
		end
		-- expired record still indexed; drop and try the next member
	end
`)

var completeScript = redis.NewScript(`
	local raw = redis.call('GET', KEYS[1])
	if not raw then
		return 'not_found'
	end

	local e = cjson.decode(raw)
	if e.status ~= 'serving' then
		return 'conflict:' .. e.status
	end

	e.status = 'completed'
	e.completed_at = ARGV[2]

	if ARGV[3] ~= '' then
		e.routed_to = ARGV[4]
		redis.call('SET', KEYS[3], ARGV[3], 'EX', ARGV[7])
		redis.call('ZADD', KEYS[4], ARGV[6], ARGV[5])
		redis.call('SADD', KEYS[5], ARGV[4])
	end

	redis.call('SET', KEYS[1], cjson.encode(e), 'KEEPTTL')
	redis.call('SREM', KEYS[2], ARGV[1])
	return cjson.encode(e)
`)

var skipScript = redis.NewScript(`
	local raw = redis.call('GET', KEYS[1])
	if not raw then
		return 'not_found'
	end

	local e = cjson.decode(raw)
	if e.status ~= 'waiting' then
		return 'conflict:' .. e.status
	end

	e.status = 'skipped'
	e.skipped_at = ARGV[2]
	if ARGV[3] ~= '' then
		e.skip_reason = ARGV[3]
	end

	redis.call('ZREM', KEYS[2], ARGV[1])
	redis.call('SET', KEYS[1], cjson.encode(e), 'KEEPTTL')
	return cjson.encode(e)
`)

var setPriorityScript = redis.NewScript(`
	local raw = redis.call('GET', KEYS[1])
	if not raw then
		return 'not_found'
	end

	local e = cjson.decode(raw)
	if e.status ~= 'waiting' then
		return 'conflict:' .. e.status
	end

	e.priority = tonumber(ARGV[2])
	redis.call('ZADD', KEYS[2], ARGV[3], ARGV[1])
	redis.call('SET', KEYS[1], cjson.encode(e), 'KEEPTTL')
	return cjson.encode(e)
`)

var removeScript = redis.NewScript(`
	local raw = redis.call('GET', KEYS[1])
	if not raw then
		return 'ok'
	end

	local e = cjson.decode(raw)
	if e.status == 'completed' or e.status == 'skipped' then
		return 'conflict:' .. e.status
	end

	redis.call('DEL', KEYS[1])
	redis.call('ZREM', KEYS[2], ARGV[1])
	redis.call('SREM', KEYS[3], ARGV[2])
	redis.call('SREM', KEYS[4], ARGV[2])
	return 'ok'
`)

func (s *Store) CreateEntry(ctx context.Context, e *models.QueueEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	pipe := s.cli.TxPipeline()
	pipe.Set(ctx, s.entryKey(e.ID), data, s.entryTTL)
	pipe.ZAdd(ctx, s.waitingKey(e.Department), redis.Z{
		Score:  e.QueueScore(),
		Member: member(e),
	})
	pipe.SAdd(ctx, s.deptKey(e.Department), e.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		s.l.Errorf(ctx, "redisQueueStore.CreateEntry: %v", err)
		return err
	}

	s.l.Debugf(ctx, "Entry created: %s (%s, %s)", e.ID, e.Department, e.QueueNumber)

	return nil
}

func (s *Store) GetEntry(ctx context.Context, id string) (*models.QueueEntry, error) {
	data, err := s.cli.Get(ctx, s.entryKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, repository.ErrNotFound
		}

		s.l.Errorf(ctx, "redisQueueStore.GetEntry: %v", err)
		return nil, err
	}

	var e models.QueueEntry
	if err := json.Unmarshal(data, &e); err != nil {
		s.l.Errorf(ctx, "redisQueueStore.GetEntry: %v", err)
		return nil, err
	}

	return &e, nil
}

func (s *Store) ListByDepartment(ctx context.Context, d models.Department) ([]*models.QueueEntry, error) {
	ids, err := s.cli.SMembers(ctx, s.deptKey(d)).Result()
	if err != nil {
		s.l.Errorf(ctx, "redisQueueStore.ListByDepartment: %v", err)
		return nil, err
	}

	entries := make([]*models.QueueEntry, 0, len(ids))
	if len(ids) == 0 {
		return entries, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.entryKey(id)
	}

	raws, err := s.cli.MGet(ctx, keys...).Result()
	if err != nil {
		s.l.Errorf(ctx, "redisQueueStore.ListByDepartment: %v", err)
		return nil, err
	}

	var stale []interface{}
	for i, raw := range raws {
		str, ok := raw.(string)
		if !ok {
			// Record expired; drop the index member lazily.
			stale = append(stale, ids[i])
			continue
		}

		var e models.QueueEntry
		if err := json.Unmarshal([]byte(str), &e); err != nil {
			s.l.Errorf(ctx, "redisQueueStore.ListByDepartment: %v", err)
			continue
		}
		entries = append(entries, &e)
	}

	if len(stale) > 0 {
		if err := s.cli.SRem(ctx, s.deptKey(d), stale...).Err(); err != nil {
			s.l.Errorf(ctx, "redisQueueStore.ListByDepartment: %v", err)
		}
	}

	repository.SortEntries(entries)
	return entries, nil
}

func (s *Store) ListAll(ctx context.Context) (map[models.Department][]*models.QueueEntry, error) {
	byDept := make(map[models.Department][]*models.QueueEntry, len(models.Departments()))
	for _, d := range models.Departments() {
		entries, err := s.ListByDepartment(ctx, d)
		if err != nil {
			return nil, err
		}
		byDept[d] = entries
	}
	return byDept, nil
}

func (s *Store) ClaimNext(ctx context.Context, d models.Department, staffID string, slots int, now time.Time) (*models.QueueEntry, error) {
	res, err := claimScript.Run(ctx, s.cli,
		[]string{s.waitingKey(d), s.servingKey(d)},
		slots, s.entryKeyPrefix(), now.Format(time.RFC3339Nano), staffID,
	).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, repository.ErrNoneWaiting
		}

		s.l.Errorf(ctx, "redisQueueStore.ClaimNext: %v", err)
		return nil, err
	}

	e, err := decodeEntry(res)
	if err != nil {
		s.l.Errorf(ctx, "redisQueueStore.ClaimNext: %v", err)
		return nil, err
	}

	s.l.Debugf(ctx, "Entry claimed: %s (%s) by %s", e.ID, d, staffID)

	return e, nil
}

func (s *Store) CompleteEntry(ctx context.Context, id string, now time.Time, next *models.QueueEntry) (*models.QueueEntry, error) {
	var (
		nextJSON  = ""
		nextID    = ""
		nextMem   = ""
		nextScore = ""
		// Placeholder keys keep the script signature fixed when no routing
		// target is supplied.
		nextEntryKey   = s.entryKey("-")
		nextWaitingKey = s.waitingKey(models.DepartmentOPD)
		nextDeptKey    = s.deptKey(models.DepartmentOPD)
	)

	var servingKey string
	old, err := s.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	servingKey = s.servingKey(old.Department)

	if next != nil {
		data, err := json.Marshal(next)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal routed entry: %w", err)
		}
		nextJSON = string(data)
		nextID = next.ID
		nextMem = member(next)
		nextScore = strconv.FormatFloat(next.QueueScore(), 'f', -1, 64)
		nextEntryKey = s.entryKey(next.ID)
		nextWaitingKey = s.waitingKey(next.Department)
		nextDeptKey = s.deptKey(next.Department)
	}

	res, err := completeScript.Run(ctx, s.cli,
		[]string{s.entryKey(id), servingKey, nextEntryKey, nextWaitingKey, nextDeptKey},
		id, now.Format(time.RFC3339Nano), nextJSON, nextID, nextMem, nextScore,
		int(s.entryTTL.Seconds()),
	).Result()
	if err != nil {
		s.l.Errorf(ctx, "redisQueueStore.CompleteEntry: %v", err)
		return nil, err
	}

	e, err := decodeEntry(res)
	if err != nil {
		s.l.Errorf(ctx, "redisQueueStore.CompleteEntry: %v", err)
		return nil, err
	}

	return e, nil
}

func (s *Store) SkipEntry(ctx context.Context, id, reason string, now time.Time) (*models.QueueEntry, error) {
	e, err := s.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}

	res, err := skipScript.Run(ctx, s.cli,
		[]string{s.entryKey(id), s.waitingKey(e.Department)},
		member(e), now.Format(time.RFC3339Nano), reason,
	).Result()
	if err != nil {
		s.l.Errorf(ctx, "redisQueueStore.SkipEntry: %v", err)
		return nil, err
	}

	return decodeEntry(res)
}

func (s *Store) SetPriority(ctx context.Context, id string, p models.Priority) (*models.QueueEntry, error) {
	e, err := s.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}

	e.Priority = p
	score := strconv.FormatFloat(e.QueueScore(), 'f', -1, 64)

	res, err := setPriorityScript.Run(ctx, s.cli,
		[]string{s.entryKey(id), s.waitingKey(e.Department)},
		member(e), int(p), score,
	).Result()
	if err != nil {
		s.l.Errorf(ctx, "redisQueueStore.SetPriority: %v", err)
		return nil, err
	}

	return decodeEntry(res)
}

func (s *Store) RemoveEntry(ctx context.Context, id string) error {
	e, err := s.GetEntry(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil
		}
		return err
	}

	res, err := removeScript.Run(ctx, s.cli,
		[]string{s.entryKey(id), s.waitingKey(e.Department), s.servingKey(e.Department), s.deptKey(e.Department)},
		member(e), id,
	).Result()
	if err != nil {
		s.l.Errorf(ctx, "redisQueueStore.RemoveEntry: %v", err)
		return err
	}

	if str, ok := res.(string); ok && strings.HasPrefix(str, "conflict:") {
		return fmt.Errorf("remove from %s: %w", strings.TrimPrefix(str, "conflict:"), repository.ErrConflict)
	}

	s.l.Debugf(ctx, "Entry removed: %s", id)
	return nil
}

func (s *Store) NextQueueNumber(ctx context.Context, d models.Department, day string) (int64, error) {
	key := s.counterKey(d, day)

	seq, err := s.cli.Incr(ctx, key).Result()
	if err != nil {
		s.l.Errorf(ctx, "redisQueueStore.NextQueueNumber: %v", err)
		return 0, err
	}

	if seq == 1 {
		if err := s.cli.Expire(ctx, key, s.entryTTL).Err(); err != nil {
			s.l.Errorf(ctx, "redisQueueStore.NextQueueNumber: %v", err)
		}
	}

	return seq, nil
}

// decodeEntry maps the tri-state script result (JSON / "not_found" /
// "conflict:<status>") onto repository errors.
func decodeEntry(res interface{}) (*models.QueueEntry, error) {
	str, ok := res.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected script result type %T", res)
	}

	switch {
	case str == "not_found":
		return nil, repository.ErrNotFound
	case strings.HasPrefix(str, "conflict:"):
		return nil, fmt.Errorf("transition from %s: %w", strings.TrimPrefix(str, "conflict:"), repository.ErrConflict)
	}

	var e models.QueueEntry
	if err := json.Unmarshal([]byte(str), &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}

	return &e, nil
}

func (s *Store) entryKeyPrefix() string {
	return "patientq:entry:"
}

func (s *Store) entryKey(id string) string {
	return s.entryKeyPrefix() + id
}

func (s *Store) waitingKey(d models.Department) string {
	return fmt.Sprintf("patientq:%s:waiting", d)
}

func (s *Store) servingKey(d models.Department) string {
	return fmt.Sprintf("patientq:%s:serving", d)
}

func (s *Store) deptKey(d models.Department) string {
	return fmt.Sprintf("patientq:%s:entries", d)
}

func (s *Store) counterKey(d models.Department, day string) string {
	return fmt.Sprintf("patientq:%s:counter:%s", d, day)
}
