package export

import (
	"bufio"
	"io"
	"strconv"

	"github.com/nao1215/addrcluster/internal/model"
)

// WriteUserMap writes one line per cluster: the cluster id followed by its
// addresses, separated by single spaces.
func WriteUserMap(w io.Writer, view *model.ClusterView) error {
	bw := bufio.NewWriter(w)
	var err error
	view.Each(func(id model.ClusterID, addresses []string) bool {
		line := strconv.AppendInt(nil, int64(id), 10)
		for _, addr := range addresses {
			line = append(line, ' ')
			line = append(line, addr...)
		}
		line = append(line, '\n')
		_, err = bw.Write(line)
		return err == nil
	})
	if err != nil {
		return err
	}
	return bw.Flush()
}

// WriteKeyMap writes one line per address: the address and its cluster id.
// Addresses are grouped by cluster in ascending id order.
func WriteKeyMap(w io.Writer, view *model.ClusterView) error {
	bw := bufio.NewWriter(w)
	var err error
	view.Each(func(id model.ClusterID, addresses []string) bool {
		for _, addr := range addresses {
			if _, err = bw.WriteString(addr); err != nil {
				return false
			}
			line := strconv.AppendInt([]byte{' '}, int64(id), 10)
			line = append(line, '\n')
			if _, err = bw.Write(line); err != nil {
				return false
			}
		}
		return true
	})
	if err != nil {
		return err
	}
	return bw.Flush()
}

// WriteGraph writes one comma-separated line per edge, in slice order.
func WriteGraph(w io.Writer, edges []model.Edge) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 64)
	for _, e := range edges {
		buf = buf[:0]
		buf = strconv.AppendInt(buf, int64(e.From), 10)
		buf = append(buf, ',')
		buf = strconv.AppendInt(buf, int64(e.To), 10)
		buf = append(buf, ',')
		buf = strconv.AppendUint(buf, e.Amount, 10)
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteClusterValues writes "<value> <clusterId>" for every cluster whose
// value is non-zero. values is indexed by cluster id.
func WriteClusterValues(w io.Writer, values []uint64) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 48)
	for id, v := range values {
		if v == 0 {
			continue
		}
		buf = buf[:0]
		buf = strconv.AppendUint(buf, v, 10)
		buf = append(buf, ' ')
		buf = strconv.AppendInt(buf, int64(id), 10)
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}
