package transferstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/query"
	dssync "github.com/ipfs/go-datastore/sync"
	logging "github.com/ipfs/go-log/v2"
	"github.com/textileio/slasher/ledger"
)

var (
	log = logging.Logger("ledger-transferstore")

	// ErrNotFound indicates the record doesn't exist.
	ErrNotFound = errors.New("not found")

	dsBaseRecord = datastore.NewKey("transfer")
)

// Record is a journaled force transfer outcome.
type Record struct {
	Seq     int
	RunID   string
	Time    time.Time
	Outcome ledger.Outcome
}

// Store keeps the outcomes of the force transfers done in a run, in
// submission order.
type Store struct {
	ds datastore.Datastore

	lock sync.Mutex
	seq  int
}

// New returns a Store backed by ds. New records are appended after the
// ones ds already holds.
func New(ds datastore.Datastore) (*Store, error) {
	seq, err := lastSeq(ds)
	if err != nil {
		return nil, fmt.Errorf("getting last sequence number: %s", err)
	}
	return &Store{ds: ds, seq: seq}, nil
}

// NewInMemory returns a Store backed by a thread-safe in-memory datastore.
// Nothing survives the process.
func NewInMemory() *Store {
	return &Store{ds: dssync.MutexWrap(datastore.NewMapDatastore())}
}

// Put journals an outcome of the run identified by runID.
func (s *Store) Put(runID string, o ledger.Outcome) (Record, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	rec := Record{
		Seq:     s.seq + 1,
		RunID:   runID,
		Time:    time.Now(),
		Outcome: o,
	}
	buf, err := json.Marshal(rec)
	if err != nil {
		return Record{}, fmt.Errorf("marshaling record: %s", err)
	}
	if err := s.ds.Put(recordKey(rec.Seq), buf); err != nil {
		return Record{}, fmt.Errorf("putting record: %s", err)
	}
	s.seq = rec.Seq
	return rec, nil
}

// Get returns the record with the provided sequence number.
func (s *Store) Get(seq int) (Record, error) {
	buf, err := s.ds.Get(recordKey(seq))
	if err == datastore.ErrNotFound {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("getting record from ds: %s", err)
	}
	var rec Record
	if err := json.Unmarshal(buf, &rec); err != nil {
		return Record{}, fmt.Errorf("unmarshaling record: %s", err)
	}
	return rec, nil
}

// All returns every journaled record in submission order.
func (s *Store) All() ([]Record, error) {
	q := query.Query{Prefix: dsBaseRecord.String(), Orders: []query.Order{query.OrderByKey{}}}
	res, err := s.ds.Query(q)
	if err != nil {
		return nil, fmt.Errorf("querying datastore: %s", err)
	}
	defer func() {
		if err := res.Close(); err != nil {
			log.Errorf("closing records query result: %s", err)
		}
	}()
	var recs []Record
	for r := range res.Next() {
		if r.Error != nil {
			return nil, fmt.Errorf("iter next: %s", r.Error)
		}
		var rec Record
		if err := json.Unmarshal(r.Value, &rec); err != nil {
			return nil, fmt.Errorf("unmarshaling record: %s", err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// ByRun returns the records of the run identified by runID in submission
// order.
func (s *Store) ByRun(runID string) ([]Record, error) {
	recs, err := s.All()
	if err != nil {
		return nil, err
	}
	var ret []Record
	for _, r := range recs {
		if r.RunID == runID {
			ret = append(ret, r)
		}
	}
	return ret, nil
}

// Total sums the amounts of every journaled outcome.
func (s *Store) Total() (*big.Int, error) {
	recs, err := s.All()
	if err != nil {
		return nil, err
	}
	return Sum(recs), nil
}

// Sum adds up the outcome amounts of recs.
func Sum(recs []Record) *big.Int {
	total := big.NewInt(0)
	for _, r := range recs {
		if r.Outcome.Amount != nil {
			total.Add(total, r.Outcome.Amount)
		}
	}
	return total
}

func lastSeq(ds datastore.Datastore) (int, error) {
	q := query.Query{Prefix: dsBaseRecord.String(), KeysOnly: true}
	res, err := ds.Query(q)
	if err != nil {
		return 0, fmt.Errorf("querying datastore: %s", err)
	}
	defer func() {
		if err := res.Close(); err != nil {
			log.Errorf("closing keys query result: %s", err)
		}
	}()
	last := 0
	for r := range res.Next() {
		if r.Error != nil {
			return 0, fmt.Errorf("iter next: %s", r.Error)
		}
		seq, err := strconv.Atoi(datastore.NewKey(r.Key).BaseNamespace())
		if err != nil {
			return 0, fmt.Errorf("parsing record key %s: %s", r.Key, err)
		}
		if seq > last {
			last = seq
		}
	}
	return last, nil
}

// recordKey zero-pads seq so key order matches submission order.
func recordKey(seq int) datastore.Key {
	return dsBaseRecord.ChildString(fmt.Sprintf("%010d", seq))
}
