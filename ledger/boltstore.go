package ledger

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/bitfsorg/crowdsale-vesting-go/address"
	"github.com/bitfsorg/crowdsale-vesting-go/vesting"
)

var (
	bucketClaims    = []byte("claims")
	bucketReceipts  = []byte("receipts")
	bucketBlacklist = []byte("blacklist")
	bucketOutbox    = []byte("outbox")
	bucketAdmin     = []byte("admin")

	keyAdminNonce = []byte("nonce")
)

// BoltStore is a Store backed by a bbolt database.
//
// Layout:
//
//	claims     round(4, BE) || wallet(20)  -> claimed total, big-endian magnitude
//	receipts   wallet(20) || id(8, BE)     -> gob(Receipt)
//	blacklist  wallet(20)                  -> 0x01
//	outbox     id(8, BE)                   -> gob(Receipt)
//	admin      "nonce"                     -> last admin command nonce(8, BE)
type BoltStore struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("ledger: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("ledger: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketClaims, bucketReceipts, bucketBlacklist, bucketOutbox, bucketAdmin} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("boltstore: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ledger: create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// Outbox returns a Transferer that queues transfers in this database.
func (s *BoltStore) Outbox() *Outbox { return &Outbox{db: s.db} }

// owns reports whether o queues into this store's database.
func (s *BoltStore) owns(o *Outbox) bool { return o != nil && o.db == s.db }

func claimKeyBytes(round vesting.RoundIndex, wallet address.Address) []byte {
	k := make([]byte, 4+address.Size)
	binary.BigEndian.PutUint32(k, uint32(round))
	copy(k[4:], wallet[:])
	return k
}

func idKey(id uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, id)
	return k
}

func receiptKey(wallet address.Address, id uint64) []byte {
	k := make([]byte, 0, address.Size+8)
	k = append(k, wallet[:]...)
	return append(k, idKey(id)...)
}

// encodeGob serializes a value using gob encoding.
func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeGob deserializes gob-encoded data into a value.
func decodeGob(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// Claimed returns the total already claimed by wallet in round.
func (s *BoltStore) Claimed(round vesting.RoundIndex, wallet address.Address) (*big.Int, error) {
	total := new(big.Int)
	err := s.db.View(func(tx *bbolt.Tx) error {
		total.SetBytes(tx.Bucket(bucketClaims).Get(claimKeyBytes(round, wallet)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return total, nil
}

// Commit adds r.Amount to the claimed total and stores the receipt in one
// transaction.
func (s *BoltStore) Commit(r *Receipt) error {
	return s.commit(r, false)
}

// CommitQueued is Commit that also queues the receipt in the outbox within
// the same transaction, so a claimed total never exists without its pending
// transfer.
func (s *BoltStore) CommitQueued(r *Receipt) error {
	return s.commit(r, true)
}

func (s *BoltStore) commit(r *Receipt, queue bool) error {
	if err := validateReceipt(r); err != nil {
		return err
	}

	var id uint64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		cb := tx.Bucket(bucketClaims)
		key := claimKeyBytes(r.Round, r.Wallet)
		total := new(big.Int).SetBytes(cb.Get(key))
		total.Add(total, r.Amount)
		if err := cb.Put(key, total.Bytes()); err != nil {
			return fmt.Errorf("boltstore: put claimed total: %w", err)
		}

		rb := tx.Bucket(bucketReceipts)
		next, err := rb.NextSequence()
		if err != nil {
			return fmt.Errorf("boltstore: next receipt id: %w", err)
		}
		rec := r.clone()
		rec.ID = next
		data, err := encodeGob(rec)
		if err != nil {
			return fmt.Errorf("boltstore: encode receipt: %w", err)
		}
		if err := rb.Put(receiptKey(r.Wallet, next), data); err != nil {
			return fmt.Errorf("boltstore: put receipt: %w", err)
		}
		if queue {
			if err := tx.Bucket(bucketOutbox).Put(idKey(next), data); err != nil {
				return fmt.Errorf("boltstore: queue transfer: %w", err)
			}
		}
		id = next
		return nil
	})
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

// Revert subtracts r.Amount from the claimed total and deletes the receipt
// and any queued transfer for it in one transaction.
func (s *BoltStore) Revert(r *Receipt) error {
	if err := validateReceipt(r); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		rb := tx.Bucket(bucketReceipts)
		rk := receiptKey(r.Wallet, r.ID)
		if rb.Get(rk) == nil {
			return fmt.Errorf("%w: %d", ErrReceiptNotFound, r.ID)
		}

		cb := tx.Bucket(bucketClaims)
		key := claimKeyBytes(r.Round, r.Wallet)
		total := new(big.Int).SetBytes(cb.Get(key))
		total.Sub(total, r.Amount)
		switch total.Sign() {
		case -1:
			return fmt.Errorf("%w: %s round %d", ErrCorruptState, r.Wallet, r.Round)
		case 0:
			if err := cb.Delete(key); err != nil {
				return fmt.Errorf("boltstore: delete claimed total: %w", err)
			}
		default:
			if err := cb.Put(key, total.Bytes()); err != nil {
				return fmt.Errorf("boltstore: put claimed total: %w", err)
			}
		}

		if err := rb.Delete(rk); err != nil {
			return fmt.Errorf("boltstore: delete receipt: %w", err)
		}
		if err := tx.Bucket(bucketOutbox).Delete(idKey(r.ID)); err != nil {
			return fmt.Errorf("boltstore: delete queued transfer: %w", err)
		}
		return nil
	})
}

// Receipts returns wallet's receipts ordered by ID.
func (s *BoltStore) Receipts(wallet address.Address) ([]*Receipt, error) {
	var out []*Receipt
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketReceipts).Cursor()
		prefix := wallet[:]
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var r Receipt
			if err := decodeGob(v, &r); err != nil {
				return fmt.Errorf("boltstore: decode receipt: %w", err)
			}
			out = append(out, &r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Blocked reports whether wallet is blacklisted.
func (s *BoltStore) Blocked(wallet address.Address) (bool, error) {
	var blocked bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		blocked = tx.Bucket(bucketBlacklist).Get(wallet[:]) != nil
		return nil
	})
	return blocked, err
}

// SetBlocked updates wallet's blacklist flag.
func (s *BoltStore) SetBlocked(wallet address.Address, blocked bool) (bool, error) {
	var changed bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketBlacklist)
		present := b.Get(wallet[:]) != nil
		if present == blocked {
			return nil
		}
		changed = true
		if blocked {
			return b.Put(wallet[:], []byte{1})
		}
		return b.Delete(wallet[:])
	})
	if err != nil {
		return false, fmt.Errorf("boltstore: update blacklist: %w", err)
	}
	return changed, nil
}

// LastNonce returns the last accepted admin command nonce, 0 if none.
func (s *BoltStore) LastNonce() (uint64, error) {
	var n uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketAdmin).Get(keyAdminNonce); len(v) == 8 {
			n = binary.BigEndian.Uint64(v)
		}
		return nil
	})
	return n, err
}

// SetLastNonce records the last accepted admin command nonce.
func (s *BoltStore) SetLastNonce(n uint64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketAdmin).Put(keyAdminNonce, idKey(n))
	})
}

// ---------------------------------------------------------------------------
// Outbox
// ---------------------------------------------------------------------------

// Outbox is a Transferer that queues committed claims for an external token
// mover. Entries stay pending until acknowledged with Ack.
type Outbox struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ Transferer = (*Outbox)(nil)

// Transfer queues r under its receipt ID.
func (o *Outbox) Transfer(ctx context.Context, r *Receipt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateReceipt(r); err != nil {
		return err
	}
	data, err := encodeGob(r)
	if err != nil {
		return fmt.Errorf("outbox: encode receipt: %w", err)
	}
	return o.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketOutbox).Put(idKey(r.ID), data)
	})
}

// Pending returns queued transfers ordered by receipt ID.
func (o *Outbox) Pending() ([]*Receipt, error) {
	var out []*Receipt
	err := o.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketOutbox).ForEach(func(_, v []byte) error {
			var r Receipt
			if err := decodeGob(v, &r); err != nil {
				return fmt.Errorf("outbox: decode receipt: %w", err)
			}
			out = append(out, &r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Ack removes a delivered transfer from the queue.
func (o *Outbox) Ack(id uint64) error {
	return o.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketOutbox)
		k := idKey(id)
		if b.Get(k) == nil {
			return fmt.Errorf("%w: %d", ErrReceiptNotFound, id)
		}
		return b.Delete(k)
	})
}
