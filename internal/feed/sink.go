package feed

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/banshee-data/phoenix.tracksim/internal/capture"
)

// Sink receives encoded records, one Send per record.
type Sink interface {
	Send(record []byte) error
	Close() error
	String() string
}

// UDPSink sends each record as its own datagram.
type UDPSink struct {
	addr string
	conn *net.UDPConn
}

// NewUDPSink dials addr ("host:port"). Broadcast addresses are allowed.
func NewUDPSink(addr string) (*UDPSink, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &UDPSink{addr: addr, conn: conn}, nil
}

func (s *UDPSink) Send(record []byte) error {
	_, err := s.conn.Write(record)
	return err
}

func (s *UDPSink) Close() error   { return s.conn.Close() }
func (s *UDPSink) String() string { return "udp://" + s.addr }

// SerialPorter is the part of a serial port a SerialSink uses.
type SerialPorter interface {
	io.Writer
	io.Closer
}

// SerialSink writes records back to back onto a serial line. Records are
// self-delimiting through their length field.
type SerialSink struct {
	path string
	mu   sync.Mutex
	port SerialPorter
}

// OpenSerialSink opens the serial port at path.
func OpenSerialSink(path string, opts PortOptions) (*SerialSink, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", path, err)
	}
	return NewSerialSink(path, port), nil
}

// NewSerialSink wraps an already open port.
func NewSerialSink(path string, port SerialPorter) *SerialSink {
	return &SerialSink{path: path, port: port}
}

func (s *SerialSink) Send(record []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.port.Write(record)
	return err
}

func (s *SerialSink) Close() error   { return s.port.Close() }
func (s *SerialSink) String() string { return "serial://" + s.path }

// CaptureSink records every record into a pcap file.
type CaptureSink struct {
	path  string
	clock func() time.Time

	mu sync.Mutex
	f  *os.File
	bw *bufio.Writer
	w  *capture.Writer
}

// CreateCaptureSink creates (or truncates) the pcap file at path. Packets
// are stamped with now.
func CreateCaptureSink(path string, now func() time.Time) (*CaptureSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create capture file: %w", err)
	}
	bw := bufio.NewWriter(f)
	w, err := capture.NewWriter(bw, capture.DefaultEndpoints())
	if err != nil {
		f.Close()
		return nil, err
	}
	return &CaptureSink{path: path, clock: now, f: f, bw: bw, w: w}, nil
}

func (s *CaptureSink) Send(record []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.WriteRecord(s.clock(), record)
}

// Close flushes buffered packets and closes the file.
func (s *CaptureSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.bw.Flush(); err != nil {
		s.f.Close()
		return fmt.Errorf("flush capture: %w", err)
	}
	return s.f.Close()
}

func (s *CaptureSink) String() string { return "pcap://" + s.path }
