/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package sortbuffer

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// encodeRows packs rows into the opaque byte payload a spill.Batch
// carries. Spill files are opaque to the arbitration protocol (spec.md
// §6); this framing is the sort buffer's own business, length-prefixed
// so a batch can hold more than one row.
func encodeRows(rows []Row) []byte {
	var out []byte
	var lp [4]byte
	for _, r := range rows {
		binary.BigEndian.PutUint32(lp[:], uint32(len(r)))
		out = append(out, lp[:]...)
		out = append(out, r...)
	}
	return out
}

func decodeRows(data []byte) ([]Row, error) {
	var rows []Row
	for len(data) > 0 {
		if len(data) < 4 {
			return nil, errors.New("sortbuffer: truncated row length prefix")
		}
		n := binary.BigEndian.Uint32(data[:4])
		data = data[4:]
		if uint64(len(data)) < uint64(n) {
			return nil, errors.New("sortbuffer: truncated row body")
		}
		rows = append(rows, Row(data[:n]))
		data = data[n:]
	}
	return rows, nil
}
