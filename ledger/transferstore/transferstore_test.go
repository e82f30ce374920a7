package transferstore

import (
	"math/big"
	"os"
	"testing"

	"github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	logging "github.com/ipfs/go-log/v2"
	"github.com/stretchr/testify/require"
	"github.com/textileio/slasher/ledger"
)

func TestMain(m *testing.M) {
	logging.SetAllLoggers(logging.LevelError)
	os.Exit(m.Run())
}

func TestPutGet(t *testing.T) {
	t.Parallel()
	s := NewInMemory()
	rec := requirePut(t, s, "5Addr1", 100)
	require.Equal(t, 1, rec.Seq)

	res, err := s.Get(rec.Seq)
	require.NoError(t, err)
	require.Equal(t, rec.Outcome.From, res.Outcome.From)
	require.Equal(t, 0, rec.Outcome.Amount.Cmp(res.Outcome.Amount))
	require.True(t, res.Time.Equal(rec.Time))
}

func TestGetNotFound(t *testing.T) {
	t.Parallel()
	s := NewInMemory()
	_, err := s.Get(42)
	require.Equal(t, ErrNotFound, err)
}

func TestAllOrdered(t *testing.T) {
	t.Parallel()
	s := NewInMemory()
	for i := 1; i <= 12; i++ {
		requirePut(t, s, "5Addr", int64(i))
	}
	recs, err := s.All()
	require.NoError(t, err)
	require.Len(t, recs, 12)
	for i, r := range recs {
		require.Equal(t, i+1, r.Seq)
		require.Equal(t, int64(i+1), r.Outcome.Amount.Int64())
	}
}

func TestTotal(t *testing.T) {
	t.Parallel()
	s := NewInMemory()
	total, err := s.Total()
	require.NoError(t, err)
	require.Equal(t, int64(0), total.Int64())

	requirePut(t, s, "5Addr1", 700)
	requirePut(t, s, "5Addr2", 300)
	total, err = s.Total()
	require.NoError(t, err)
	require.Equal(t, int64(1000), total.Int64())
}

func TestByRun(t *testing.T) {
	t.Parallel()
	s := NewInMemory()
	requirePutRun(t, s, "run-1", "5Addr1", 300)
	requirePutRun(t, s, "run-2", "5Addr1", 300)
	requirePutRun(t, s, "run-2", "5Addr2", 50)

	recs, err := s.ByRun("run-2")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, "5Addr1", recs[0].Outcome.From)
	require.Equal(t, "5Addr2", recs[1].Outcome.From)
	require.Equal(t, int64(350), Sum(recs).Int64())

	recs, err = s.ByRun("run-3")
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestNewContinuesSequence(t *testing.T) {
	t.Parallel()
	ds := dssync.MutexWrap(datastore.NewMapDatastore())
	s, err := New(ds)
	require.NoError(t, err)
	for i := 1; i <= 11; i++ {
		requirePut(t, s, "5Addr1", int64(i))
	}

	reopened, err := New(ds)
	require.NoError(t, err)
	rec := requirePutRun(t, reopened, "run-2", "5Addr2", 100)
	require.Equal(t, 12, rec.Seq)

	first, err := reopened.Get(1)
	require.NoError(t, err)
	require.Equal(t, "5Addr1", first.Outcome.From)
	recs, err := reopened.All()
	require.NoError(t, err)
	require.Len(t, recs, 12)
}

func requirePut(t *testing.T, s *Store, from string, amount int64) Record {
	t.Helper()
	return requirePutRun(t, s, "run-1", from, amount)
}

func requirePutRun(t *testing.T, s *Store, runID, from string, amount int64) Record {
	t.Helper()
	rec, err := s.Put(runID, ledger.Outcome{
		From:   from,
		To:     "5Sudo",
		Amount: big.NewInt(amount),
		DryRun: true,
		Ok:     true,
	})
	require.NoError(t, err)
	return rec
}
