package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"monallobridge/config"
	"monallobridge/types"

	"github.com/gomodule/redigo/redis"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// note that the two status sets must not share a record key
var redisStatusSets = map[string]string{
	types.STATUS_PENDING: "bridgeops:pending", // source transaction was scanned
	types.STATUS_RELAYED: "bridgeops:relayed", // destination transaction confirmed
}

// RedisStore keeps transfer records in Redis. Record values are JSON under
// the natural key; a per-(chain, tx) nonce set serves as the secondary index
// for status lookups; per-status sets serve the operator listings.
type RedisStore struct {
	pool *redis.Pool
}

func timeoutDialOptions() []redis.DialOption {
	return []redis.DialOption{
		redis.DialConnectTimeout(5 * time.Second),
		redis.DialReadTimeout(5 * time.Second),
		redis.DialWriteTimeout(5 * time.Second),
	}
}

func NewRedisStore() *RedisStore {
	redisAddr := fmt.Sprintf("%s:%d", config.Config.Server.RedisHost, config.Config.Server.RedisPort)
	return &RedisStore{
		pool: &redis.Pool{
			MaxIdle: 5,
			Dial:    func() (redis.Conn, error) { return redis.Dial("tcp", redisAddr, timeoutDialOptions()...) },
		},
	}
}

// Ping verifies connectivity; without persistence the relayer must not run.
func (s *RedisStore) Ping() error {
	conn := s.pool.Get()
	defer conn.Close()
	_, err := conn.Do("PING")
	return errors.Wrap(err, "redis ping")
}

func recordKey(dir types.Direction, sourceChain int, sourceTxHash string, nonce uint64) string {
	return fmt.Sprintf("bridge:%s:%d:%s:%d", dir, sourceChain, strings.ToLower(sourceTxHash), nonce)
}

func indexKey(dir types.Direction, sourceChain int, sourceTxHash string) string {
	return fmt.Sprintf("bridge:%s:index:%d:%s", dir, sourceChain, strings.ToLower(sourceTxHash))
}

func (s *RedisStore) Get(dir types.Direction, sourceChain int, sourceTxHash string, nonce uint64) (*types.TransferRecord, error) {
	conn := s.pool.Get()
	defer conn.Close()
	return getRecord(conn, recordKey(dir, sourceChain, sourceTxHash, nonce))
}

func getRecord(conn redis.Conn, key string) (*types.TransferRecord, error) {
	raw, err := redis.Bytes(conn.Do("GET", key))
	if errors.Is(err, redis.ErrNil) {
		return nil, nil
	}
	if err != nil {
		log.Errorf("error Redis GET: %s", err.Error())
		return nil, err
	}

	var rec types.TransferRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, errors.Wrap(err, "unmarshalling transfer record")
	}
	return &rec, nil
}

func (s *RedisStore) Insert(rec *types.TransferRecord) (bool, error) {
	conn := s.pool.Get()
	defer conn.Close()

	if rec == nil {
		return false, errors.New("null record to store")
	}
	if rec.Status == "" {
		return false, errors.New("transfer record cannot have empty status")
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	recJSON, err := json.Marshal(rec)
	if err != nil {
		return false, errors.Wrap(err, "marshalling transfer record")
	}

	key := recordKey(rec.Direction, rec.SourceChain, rec.SourceTxHash, rec.Nonce)

	// SETNX is the unique-key constraint: a concurrent duplicate insert
	// must not error or create a second record
	created, err := redis.Int(conn.Do("SETNX", key, recJSON))
	if err != nil {
		log.Errorf("error Redis SETNX: %s", err.Error())
		return false, err
	}
	if created == 0 {
		return false, nil
	}

	if _, err := conn.Do("SADD", indexKey(rec.Direction, rec.SourceChain, rec.SourceTxHash), rec.Nonce); err != nil {
		log.Errorf("error Redis SADD: %s", err.Error())
		return false, err
	}
	if _, err := conn.Do("SADD", redisStatusSets[rec.Status], key); err != nil {
		log.Errorf("error Redis SADD: %s", err.Error())
		return false, err
	}
	return true, nil
}

func (s *RedisStore) Update(rec *types.TransferRecord) error {
	conn := s.pool.Get()
	defer conn.Close()

	if rec == nil {
		return errors.New("null record to store")
	}
	recJSON, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "marshalling transfer record")
	}

	key := recordKey(rec.Direction, rec.SourceChain, rec.SourceTxHash, rec.Nonce)
	if _, err := conn.Do("SET", key, recJSON); err != nil {
		log.Errorf("error Redis SET: %s", err.Error())
		return err
	}
	return nil
}

func (s *RedisStore) MarkRelayed(rec *types.TransferRecord, destTxHash string) error {
	conn := s.pool.Get()
	defer conn.Close()

	if rec == nil {
		return errors.New("null record to store")
	}

	prevStatus := rec.Status
	rec.Status = types.STATUS_RELAYED
	rec.DestTxHash = destTxHash

	recJSON, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "marshalling transfer record")
	}

	key := recordKey(rec.Direction, rec.SourceChain, rec.SourceTxHash, rec.Nonce)
	if _, err := conn.Do("SET", key, recJSON); err != nil {
		log.Errorf("error Redis SET: %s", err.Error())
		return err
	}
	if prevStatus != types.STATUS_RELAYED {
		if _, err := conn.Do("SMOVE", redisStatusSets[prevStatus], redisStatusSets[types.STATUS_RELAYED], key); err != nil {
			log.Errorf("error Redis SMOVE: %s", err.Error())
			return err
		}
	}
	return nil
}

func (s *RedisStore) LatestBySourceTx(sourceChain int, sourceTxHash string) (*types.TransferRecord, error) {
	conn := s.pool.Get()
	defer conn.Close()

	for _, dir := range []types.Direction{types.DIRECTION_LOCK, types.DIRECTION_UNLOCK} {
		nonces, err := redis.Strings(conn.Do("SMEMBERS", indexKey(dir, sourceChain, sourceTxHash)))
		if err != nil && !errors.Is(err, redis.ErrNil) {
			log.Errorf("error Redis SMEMBERS: %s", err.Error())
			return nil, err
		}
		if len(nonces) == 0 {
			continue
		}

		var best uint64
		found := false
		for _, n := range nonces {
			nonce, err := strconv.ParseUint(n, 10, 64)
			if err != nil {
				continue
			}
			if !found || nonce > best {
				best = nonce
				found = true
			}
		}
		if !found {
			continue
		}

		rec, err := getRecord(conn, recordKey(dir, sourceChain, sourceTxHash, best))
		if err != nil {
			return nil, err
		}
		if rec != nil {
			return rec, nil
		}
	}
	return nil, nil
}

func (s *RedisStore) FindAllByStatus(status string) ([]*types.TransferRecord, error) {
	conn := s.pool.Get()
	defer conn.Close()

	set, ok := redisStatusSets[status]
	if !ok {
		return nil, errors.New("redis key not found for status")
	}

	recs := make([]*types.TransferRecord, 0)

	// scan every record key in the status set
	var cursor int64
	for {
		values, err := redis.Values(conn.Do("SSCAN", set, cursor))
		if err != nil {
			return nil, err
		}

		var keys []string
		if _, err = redis.Scan(values, &cursor, &keys); err != nil {
			return nil, err
		}

		for _, key := range keys {
			rec, err := getRecord(conn, key)
			if err != nil {
				return nil, err
			}
			if rec != nil && rec.Status == status {
				recs = append(recs, rec)
			}
		}

		if cursor == 0 {
			break
		}
	}

	return recs, nil
}
