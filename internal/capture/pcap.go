// Package capture writes encoded records into pcap files as UDP datagrams and
// reads them back, so a feed can be replayed or opened in Wireshark.
package capture

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// DefaultPort is the UDP port records are addressed to when none is given.
const DefaultPort = 8600

const snapLen = 65536

// Endpoints are the link, network and transport addresses stamped on each
// captured datagram.
type Endpoints struct {
	SrcMAC  net.HardwareAddr
	DstMAC  net.HardwareAddr
	SrcIP   net.IP
	DstIP   net.IP
	SrcPort int
	DstPort int
}

// DefaultEndpoints addresses records from a local sensor to the broadcast
// address on DefaultPort.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		SrcMAC:  net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x30},
		DstMAC:  net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		SrcIP:   net.IPv4(192, 168, 1, 48).To4(),
		DstIP:   net.IPv4(255, 255, 255, 255).To4(),
		SrcPort: DefaultPort,
		DstPort: DefaultPort,
	}
}

// Writer appends records to a pcap stream, one Ethernet/IPv4/UDP frame per
// record.
type Writer struct {
	w     *pcapgo.Writer
	ep    Endpoints
	ipID  uint16
	count int
}

// NewWriter writes the pcap file header to w and returns a Writer for it.
func NewWriter(w io.Writer, ep Endpoints) (*Writer, error) {
	if ep.SrcIP.To4() == nil || ep.DstIP.To4() == nil {
		return nil, errors.New("capture endpoints must be IPv4")
	}
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(snapLen, layers.LinkTypeEthernet); err != nil {
		return nil, fmt.Errorf("write pcap header: %w", err)
	}
	return &Writer{w: pw, ep: ep}, nil
}

// WriteRecord frames payload as a UDP datagram captured at ts.
func (cw *Writer) WriteRecord(ts time.Time, payload []byte) error {
	frame, err := cw.frame(payload)
	if err != nil {
		return err
	}
	ci := gopacket.CaptureInfo{
		Timestamp:     ts,
		CaptureLength: len(frame),
		Length:        len(frame),
	}
	if err := cw.w.WritePacket(ci, frame); err != nil {
		return fmt.Errorf("write packet %d: %w", cw.count, err)
	}
	cw.count++
	return nil
}

// Count is the number of records written.
func (cw *Writer) Count() int { return cw.count }

func (cw *Writer) frame(payload []byte) ([]byte, error) {
	cw.ipID++

	eth := &layers.Ethernet{
		SrcMAC:       cw.ep.SrcMAC,
		DstMAC:       cw.ep.DstMAC,
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Id:       cw.ipID,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    cw.ep.SrcIP.To4(),
		DstIP:    cw.ep.DstIP.To4(),
	}
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(cw.ep.SrcPort),
		DstPort: layers.UDPPort(cw.ep.DstPort),
	}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		return nil, err
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)); err != nil {
		return nil, fmt.Errorf("serialize frame: %w", err)
	}
	return buf.Bytes(), nil
}

// Packet is one UDP payload read from a capture.
type Packet struct {
	Timestamp time.Time
	SrcPort   int
	DstPort   int
	Payload   []byte
}

// ReadRecords walks a pcap stream and calls fn with every UDP payload whose
// destination port is port. A port of 0 accepts every UDP datagram.
// Returning an error from fn stops the walk.
func ReadRecords(r io.Reader, port int, fn func(Packet) error) error {
	pr, err := pcapgo.NewReader(r)
	if err != nil {
		return fmt.Errorf("open pcap: %w", err)
	}

	src := gopacket.NewPacketSource(pr, pr.LinkType())
	for {
		packet, err := src.NextPacket()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read packet: %w", err)
		}

		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		udp, ok := udpLayer.(*layers.UDP)
		if !ok || len(udp.Payload) == 0 {
			continue
		}
		if port != 0 && int(udp.DstPort) != port {
			continue
		}

		if err := fn(Packet{
			Timestamp: packet.Metadata().Timestamp,
			SrcPort:   int(udp.SrcPort),
			DstPort:   int(udp.DstPort),
			Payload:   udp.Payload,
		}); err != nil {
			return err
		}
	}
}
