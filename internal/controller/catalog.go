package controller

import (
	"fmt"
	"time"

	"github.com/micro-nova/amplipi-prefs/internal/models"
	"github.com/micro-nova/amplipi-prefs/internal/settings"
)

// DefaultDebounce is the commit window for settings driven by sliders.
const DefaultDebounce = 300 * time.Millisecond

// Definition describes one setting the controller owns.
type Definition struct {
	Key      string
	Kind     settings.Kind
	Default  any
	Strategy settings.CommitStrategy
	// Debounce, when positive, defers commits until updates have been quiet
	// for this long. Requires ManualCommit.
	Debounce time.Duration
}

// DefaultDefinitions is the daemon's built-in catalog.
func DefaultDefinitions() []Definition {
	return []Definition{
		{Key: "volume", Kind: settings.KindFloat, Default: 0.5, Strategy: settings.ManualCommit, Debounce: DefaultDebounce},
		{Key: "brightness", Kind: settings.KindInt, Default: 50, Strategy: settings.ManualCommit, Debounce: DefaultDebounce},
		{Key: "mute", Kind: settings.KindBool, Default: false, Strategy: settings.AutoCommit},
		{Key: "device_name", Kind: settings.KindString, Default: "AmpliPi", Strategy: settings.AutoCommit},
	}
}

func (c *Controller) build(d Definition) (settings.Setting, error) {
	switch d.Kind {
	case settings.KindBool:
		def, ok := d.Default.(bool)
		if !ok {
			return nil, badDefault(d)
		}
		p, err := settings.NewBool(c.store, d.Key, def, d.Strategy)
		if err != nil {
			return nil, err
		}
		return wire(c, d, p)
	case settings.KindInt:
		def, ok := d.Default.(int)
		if !ok {
			return nil, badDefault(d)
		}
		p, err := settings.NewInt(c.store, d.Key, def, d.Strategy)
		if err != nil {
			return nil, err
		}
		return wire(c, d, p)
	case settings.KindFloat:
		var def float64
		switch v := d.Default.(type) {
		case float64:
			def = v
		case int:
			def = float64(v)
		default:
			return nil, badDefault(d)
		}
		p, err := settings.NewFloat(c.store, d.Key, def, d.Strategy)
		if err != nil {
			return nil, err
		}
		return wire(c, d, p)
	case settings.KindString:
		def, ok := d.Default.(string)
		if !ok {
			return nil, badDefault(d)
		}
		p, err := settings.NewString(c.store, d.Key, def, d.Strategy)
		if err != nil {
			return nil, err
		}
		return wire(c, d, p)
	}
	return nil, fmt.Errorf("controller: %q: unknown kind %q", d.Key, d.Kind)
}

// wire forwards p's notifications to the bus and wraps it in a debouncer
// when the definition asks for one.
func wire[V comparable](c *Controller, d Definition, p *settings.Parameter[V]) (settings.Setting, error) {
	key, kind := p.Key(), p.Kind()
	p.OnChanged().Add(func(v V) { c.publish(models.EventChanged, key, kind, v) })
	p.OnCommitted().Add(func(v V) { c.publish(models.EventCommitted, key, kind, v) })

	if d.Debounce <= 0 {
		return p, nil
	}
	return p.Debounced(c.ctx, d.Debounce, c.loop)
}

func badDefault(d Definition) error {
	return fmt.Errorf("%w: %q: default %v (%T) is not a %s", settings.ErrInvalidValue, d.Key, d.Default, d.Default, d.Kind)
}
