package di

import "testing"

type greeter struct{ name string }

func TestRegisterToken_LazySingleton(t *testing.T) {
	c := NewContainer()
	c.Register("name", "bridge")

	tok := NewToken[*greeter]("test:greeter")
	builds := 0
	RegisterToken(c, tok, func(sr ServiceRegistry) *greeter {
		builds++
		return &greeter{name: sr.Get("name").(string)}
	})

	if builds != 0 {
		t.Fatalf("factory ran before first Get")
	}

	g1 := GetToken(c, tok)
	g2 := GetToken(c, tok)
	if g1 != g2 {
		t.Errorf("expected same instance")
	}
	if builds != 1 {
		t.Errorf("builds = %d, want 1", builds)
	}
	if g1.name != "bridge" {
		t.Errorf("name = %q", g1.name)
	}
	if !c.Has(tok.Name()) {
		t.Errorf("Has(%q) = false", tok.Name())
	}
}

func TestGet_Panics(t *testing.T) {
	tests := []struct {
		name  string
		setup func(Container)
		key   string
	}{
		{
			name:  "unregistered",
			setup: func(Container) {},
			key:   "missing",
		},
		{
			name: "cycle",
			setup: func(c Container) {
				c.RegisterFactory("a", func(sr ServiceRegistry) any { return sr.Get("b") })
				c.RegisterFactory("b", func(sr ServiceRegistry) any { return sr.Get("a") })
			},
			key: "a",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewContainer()
			tt.setup(c)
			defer func() {
				if recover() == nil {
					t.Errorf("expected panic")
				}
			}()
			c.Get(tt.key)
		})
	}
}
