package store

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/lotwire/lotwire/msg"
)

// default winning number of the draw
const WINNING_NUMBER = 7574

// FileStore keeps bets in a CSV file, one row per bet, in arrival order.
// Row layout: agency,first_name,last_name,document,birthdate,number.
type FileStore struct {
	mu      sync.Mutex // guards the append handle
	path    string
	f       *os.File
	winning int
}

// NewFileStore opens the bet file at path, creating it if needed.
// winning ≤ 0 selects the default winning number.
func NewFileStore(path string, winning int) (*FileStore, error) {
	if winning <= 0 {
		winning = WINNING_NUMBER
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	return &FileStore{
		path:    path,
		f:       f,
		winning: winning,
	}, nil
}

// Append implements Store. The whole batch is committed with a single
// write on the append handle.
func (fs *FileStore) Append(bets []msg.Bet) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for i := range bets {
		if err := w.Write(record(&bets[i])); err != nil {
			return fmt.Errorf("%w: %v", ErrWrite, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.f == nil {
		return ErrClosed
	}
	if _, err := fs.f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

// Scan implements Store, reading the whole bet file on a fresh handle.
func (fs *FileStore) Scan() ([]msg.Bet, error) {
	fs.mu.Lock()
	closed := fs.f == nil
	fs.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	f, err := os.Open(fs.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fs.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 6

	var bets []msg.Bet
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return bets, nil
		}
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", fs.path, err)
		}

		bet, err := fromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", fs.path, err)
		}
		bets = append(bets, bet)
	}
}

// IsWinner implements Store
func (fs *FileStore) IsWinner(bet *msg.Bet) bool {
	return bet.Number == fs.winning
}

// Close flushes and closes the bet file. Further appends fail.
func (fs *FileStore) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.f == nil {
		return nil
	}

	err := fs.f.Close()
	fs.f = nil
	return err
}

func record(bet *msg.Bet) []string {
	return []string{
		strconv.Itoa(bet.Agency),
		bet.FirstName,
		bet.LastName,
		bet.Document,
		bet.Birthdate,
		strconv.Itoa(bet.Number),
	}
}

func fromRecord(rec []string) (bet msg.Bet, err error) {
	bet.Agency, err = strconv.Atoi(rec[0])
	if err != nil {
		return bet, fmt.Errorf("agency: %w", msg.ErrValue)
	}
	bet.FirstName = rec[1]
	bet.LastName = rec[2]
	bet.Document = rec[3]
	bet.Birthdate = rec[4]
	bet.Number, err = strconv.Atoi(rec[5])
	if err != nil {
		return bet, fmt.Errorf("number: %w", msg.ErrValue)
	}
	return bet, nil
}
