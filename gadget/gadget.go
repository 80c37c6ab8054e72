// Package gadget creates and removes a USB HID keyboard gadget through the
// Linux configfs interface. Once bound to a device controller the kernel
// exposes the keyboard as a /dev/hidgN character device.
package gadget

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gadgetkb/gadgetkb/keyboard"
)

const (
	function = "hid.usb0"
	config   = "c.1"
	langUS   = "0x409"
)

// writeFile stores a configfs attribute.
var writeFile = os.WriteFile

var (
	ErrExists = errors.New("gadget already exists")
	ErrNoUDC  = errors.New("no USB device controller found")
)

// Config describes the keyboard gadget.
type Config struct {
	ConfigFS     string `help:"configfs mount point" default:"/sys/kernel/config" env:"GADGETKB_CONFIGFS"`
	SysFS        string `help:"sysfs mount point" default:"/sys" hidden:"" env:"GADGETKB_SYSFS"`
	Name         string `help:"Gadget directory name" default:"gadgetkb" env:"GADGETKB_GADGET_NAME"`
	VendorID     string `help:"USB vendor ID" default:"0x1d6b" env:"GADGETKB_VENDOR_ID"`
	ProductID    string `help:"USB product ID" default:"0x0104" env:"GADGETKB_PRODUCT_ID"`
	Manufacturer string `help:"Manufacturer string" default:"gadgetkb" env:"GADGETKB_MANUFACTURER"`
	Product      string `help:"Product string" default:"gadgetkb keyboard" env:"GADGETKB_PRODUCT"`
	Serial       string `help:"Serial number string" default:"0000000001" env:"GADGETKB_SERIAL"`
	MaxPower     int    `help:"Maximum bus power draw in mA" default:"250" env:"GADGETKB_MAX_POWER"`
	UDC          string `help:"USB device controller to bind to, empty picks the first one" env:"GADGETKB_UDC"`
}

func (c Config) dir() string {
	return filepath.Join(c.ConfigFS, "usb_gadget", c.Name)
}

func (c Config) validate() error {
	if c.Name == "" || strings.ContainsRune(c.Name, os.PathSeparator) {
		return fmt.Errorf("invalid gadget name %q", c.Name)
	}
	for _, id := range []string{c.VendorID, c.ProductID} {
		if _, err := strconv.ParseUint(id, 0, 16); err != nil {
			return fmt.Errorf("invalid USB id %q: %w", id, err)
		}
	}
	return nil
}

// Setup creates the gadget, binds it to a device controller and returns
// the path of the keyboard character device.
func Setup(cfg Config, logger *slog.Logger) (string, error) {
	if err := cfg.validate(); err != nil {
		return "", err
	}
	dir := cfg.dir()
	if _, err := os.Stat(dir); err == nil {
		return "", fmt.Errorf("%w: %s", ErrExists, dir)
	}

	udc := cfg.UDC
	if udc == "" {
		var err error
		if udc, err = firstUDC(cfg.SysFS); err != nil {
			return "", err
		}
	}

	fn := filepath.Join(dir, "functions", function)
	cf := filepath.Join(dir, "configs", config)
	w := &attrWriter{}
	w.mkdir(dir)
	w.write(dir, "idVendor", cfg.VendorID)
	w.write(dir, "idProduct", cfg.ProductID)
	w.write(dir, "bcdDevice", "0x0100")
	w.write(dir, "bcdUSB", "0x0200")

	str := filepath.Join(dir, "strings", langUS)
	w.mkdir(str)
	w.write(str, "serialnumber", cfg.Serial)
	w.write(str, "manufacturer", cfg.Manufacturer)
	w.write(str, "product", cfg.Product)

	w.mkdir(fn)
	w.write(fn, "protocol", "1") // keyboard
	w.write(fn, "subclass", "1") // boot interface
	w.write(fn, "report_length", strconv.Itoa(keyboard.ReportSize))
	w.writeBytes(fn, "report_desc", keyboard.ReportDescriptor.Bytes())

	cfStr := filepath.Join(cf, "strings", langUS)
	w.mkdir(cfStr)
	w.write(cfStr, "configuration", "Keyboard")
	w.write(cf, "MaxPower", strconv.Itoa(cfg.MaxPower))
	w.symlink(fn, filepath.Join(cf, function))
	w.write(dir, "UDC", udc)
	if w.err != nil {
		err := fmt.Errorf("creating gadget %s: %w", cfg.Name, w.err)
		if terr := Teardown(cfg, logger); terr != nil {
			return "", errors.Join(err, terr)
		}
		return "", err
	}
	logger.Info("gadget bound", "gadget", cfg.Name, "udc", udc)

	dev, err := devicePath(cfg.SysFS, fn)
	if err != nil {
		return "", fmt.Errorf("gadget %s is bound but its device was not found: %w", cfg.Name, err)
	}
	logger.Info("keyboard ready", "device", dev)
	return dev, nil
}

// Teardown unbinds and removes the gadget. A gadget that does not exist is
// not an error.
func Teardown(cfg Config, logger *slog.Logger) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	dir := cfg.dir()
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		logger.Debug("gadget not present", "gadget", cfg.Name)
		return nil
	}

	// UDC exists as long as the gadget does; only clear it, never create it.
	if f, err := os.OpenFile(filepath.Join(dir, "UDC"), os.O_WRONLY|os.O_TRUNC, 0); err == nil {
		_, werr := f.WriteString("\n")
		if err := errors.Join(werr, f.Close()); err != nil {
			return fmt.Errorf("unbinding gadget %s: %w", cfg.Name, err)
		}
	}

	cf := filepath.Join(dir, "configs", config)
	var errs []error
	for _, p := range []string{
		filepath.Join(cf, function),
		filepath.Join(cf, "strings", langUS),
		cf,
		filepath.Join(dir, "functions", function),
		filepath.Join(dir, "strings", langUS),
		dir,
	} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("removing gadget %s: %w", cfg.Name, err)
	}
	logger.Info("gadget removed", "gadget", cfg.Name)
	return nil
}

func firstUDC(sysfs string) (string, error) {
	entries, err := os.ReadDir(filepath.Join(sysfs, "class", "udc"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	if len(entries) == 0 {
		return "", ErrNoUDC
	}
	return entries[0].Name(), nil
}

// devicePath maps the function's major:minor to its /dev node through the
// DEVNAME the kernel reports in sysfs.
func devicePath(sysfs, fn string) (string, error) {
	dev, err := os.ReadFile(filepath.Join(fn, "dev"))
	if err != nil {
		return "", err
	}
	uevent, err := os.ReadFile(filepath.Join(sysfs, "dev", "char", strings.TrimSpace(string(dev)), "uevent"))
	if err != nil {
		return "", err
	}
	for line := range strings.Lines(string(uevent)) {
		if name, ok := strings.CutPrefix(strings.TrimSpace(line), "DEVNAME="); ok {
			return filepath.Join("/dev", name), nil
		}
	}
	return "", fmt.Errorf("no DEVNAME for %s", strings.TrimSpace(string(dev)))
}

// attrWriter performs configfs operations until the first failure.
type attrWriter struct{ err error }

func (w *attrWriter) mkdir(p string) {
	if w.err == nil {
		w.err = os.MkdirAll(p, 0o755)
	}
}

func (w *attrWriter) write(dir, name, value string) {
	w.writeBytes(dir, name, []byte(value))
}

func (w *attrWriter) writeBytes(dir, name string, value []byte) {
	if w.err == nil {
		w.err = writeFile(filepath.Join(dir, name), value, 0o644)
	}
}

func (w *attrWriter) symlink(target, link string) {
	if w.err == nil {
		w.err = os.Symlink(target, link)
	}
}
