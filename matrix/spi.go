package matrix

import (
	"fmt"
	"image"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const (
	defaultSPIPort  = "SPI0.0"
	defaultSPISpeed = 24 * physic.MegaHertz
	defaultTxChunk  = 4096
	pwmFrequency    = 2 * physic.KiloHertz
)

type SPIConfig struct {
	Port string
	// SpeedHz is the bus clock; 0 picks 24MHz.
	SpeedHz int64
	// EnablePin is a PWM capable pin driving the panel output enable.
	// Empty means brightness is done in software.
	EnablePin string
}

// SPISink streams RGB888 rows, top to bottom, to a matrix controller on an
// SPI bus.
type SPISink struct {
	port  spi.PortCloser
	conn  spi.Conn
	pin   gpio.PinIO
	chunk int
	buf   []byte
}

func OpenSPI(cfg SPIConfig) (*SPISink, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	name := cfg.Port
	if name == "" {
		name = defaultSPIPort
	}
	port, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	speed := defaultSPISpeed
	if cfg.SpeedHz > 0 {
		speed = physic.Frequency(cfg.SpeedHz) * physic.Hertz
	}
	c, err := port.Connect(speed, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("connect %s: %w", name, err)
	}

	s := &SPISink{port: port, conn: c, chunk: defaultTxChunk}
	if l, ok := c.(conn.Limits); ok && l.MaxTxSize() > 0 {
		s.chunk = l.MaxTxSize()
	}
	if cfg.EnablePin != "" {
		s.pin = gpioreg.ByName(cfg.EnablePin)
		if s.pin == nil {
			port.Close()
			return nil, fmt.Errorf("no such pin %s", cfg.EnablePin)
		}
	}
	return s, nil
}

func (s *SPISink) Push(frame *image.RGBA) error {
	b := frame.Bounds()
	n := b.Dx() * b.Dy() * 3
	if cap(s.buf) < n {
		s.buf = make([]byte, n)
	}
	s.buf = s.buf[:n]
	packRGB(s.buf, frame)

	for off := 0; off < n; off += s.chunk {
		end := off + s.chunk
		if end > n {
			end = n
		}
		if err := s.conn.Tx(s.buf[off:end], nil); err != nil {
			return fmt.Errorf("spi tx: %w", err)
		}
	}
	return nil
}

func (s *SPISink) SetBrightness(level int) error {
	if s.pin == nil {
		return ErrNoHardwareBrightness
	}
	duty := gpio.DutyMax * gpio.Duty(level) / 100
	return s.pin.PWM(duty, pwmFrequency)
}

func (s *SPISink) Close() error {
	if s.pin != nil {
		_ = s.pin.Out(gpio.Low)
	}
	return s.port.Close()
}

// packRGB drops the alpha channel.
func packRGB(dst []byte, frame *image.RGBA) {
	b := frame.Bounds()
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := frame.Pix[frame.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			dst[i] = row[x*4]
			dst[i+1] = row[x*4+1]
			dst[i+2] = row[x*4+2]
			i += 3
		}
	}
}
