package archive

import (
	"encoding/json"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/maxwellchess/selfplay/internal/domain"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	positionPrefix = "pos/"
	keyStats       = "meta/stats"
)

type Stats struct {
	Games     int `json:"games"`
	Positions int `json:"positions"`
}

// Archive is a persistent set of labeled positions keyed by FEN.
type Archive struct {
	db *badger.DB
}

// Open opens or creates the archive in dir.
func Open(dir string) (*Archive, error) {
	var opts = badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open archive %v", dir)
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Put stores samples whose FEN is not in the archive yet and returns how many were added.
// The first label stored for a position is kept.
func (a *Archive) Put(samples []domain.Sample) (int, error) {
	var added int
	var txn = a.db.NewTransaction(true)
	defer func() {
		txn.Discard()
	}()

	var set = func(key, value []byte) error {
		var err = txn.Set(key, value)
		if err == badger.ErrTxnTooBig {
			err = txn.Commit()
			if err != nil {
				return err
			}
			txn = a.db.NewTransaction(true)
			err = txn.Set(key, value)
		}
		return err
	}

	for i := range samples {
		var key = positionKey(samples[i].FEN)
		_, err := txn.Get(key)
		if err == nil {
			continue
		}
		if err != badger.ErrKeyNotFound {
			return added, err
		}
		err = set(key, []byte(strconv.FormatFloat(samples[i].Label, 'f', -1, 64)))
		if err != nil {
			return added, err
		}
		added++
	}
	var err = txn.Commit()
	if err != nil {
		return added, err
	}

	err = a.updateStats(func(s *Stats) {
		s.Positions += added
	})
	if err != nil {
		return added, err
	}
	log.Debug().
		Int("added", added).
		Int("repeats", len(samples)-added).
		Msg("Archived positions")
	return added, nil
}

func (a *Archive) AddGames(n int) error {
	return a.updateStats(func(s *Stats) {
		s.Games += n
	})
}

func (a *Archive) updateStats(update func(s *Stats)) error {
	return a.db.Update(func(txn *badger.Txn) error {
		var stats, err = readStats(txn)
		if err != nil {
			return err
		}
		update(&stats)
		data, err := json.Marshal(stats)
		if err != nil {
			return err
		}
		return txn.Set([]byte(keyStats), data)
	})
}

func (a *Archive) Stats() (Stats, error) {
	var stats Stats
	var err = a.db.View(func(txn *badger.Txn) error {
		var err error
		stats, err = readStats(txn)
		return err
	})
	return stats, err
}

func readStats(txn *badger.Txn) (Stats, error) {
	var stats Stats
	item, err := txn.Get([]byte(keyStats))
	if err == badger.ErrKeyNotFound {
		return stats, nil
	}
	if err != nil {
		return stats, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &stats)
	})
	return stats, err
}

// Load returns up to maxSize archived samples. Zero maxSize means all of them.
func (a *Archive) Load(maxSize int) ([]domain.Sample, error) {
	var result []domain.Sample
	var err = a.db.View(func(txn *badger.Txn) error {
		var opts = badger.DefaultIteratorOptions
		opts.Prefix = []byte(positionPrefix)
		var it = txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if maxSize != 0 && len(result) >= maxSize {
				break
			}
			var item = it.Item()
			var fen = string(item.Key()[len(positionPrefix):])
			var err = item.Value(func(val []byte) error {
				label, err := strconv.ParseFloat(string(val), 64)
				if err != nil {
					return errors.Wrapf(err, "archived label for %v", fen)
				}
				result = append(result, domain.Sample{FEN: fen, Label: label})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return result, err
}

func positionKey(fen string) []byte {
	return []byte(positionPrefix + fen)
}
