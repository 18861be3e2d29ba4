package native

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/gogpu/fx/gpucore"
	"github.com/gogpu/gputypes"
)

func TestTextureLayoutEntries(t *testing.T) {
	slots := []gpucore.TextureSlot{
		{Slot: 0, Access: gpucore.TextureAccessRead},
		{Slot: 1, Access: gpucore.TextureAccessWrite},
		{Slot: 3, Access: gpucore.TextureAccessReadWrite},
	}
	entries := textureLayoutEntries(slots)
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}

	want := []struct {
		binding uint32
		typ     gputypes.BufferBindingType
	}{
		{0, gputypes.BufferBindingTypeReadOnlyStorage},
		{1, gputypes.BufferBindingTypeStorage},
		{3, gputypes.BufferBindingTypeStorage},
	}
	for i, w := range want {
		e := entries[i]
		if e.Binding != w.binding {
			t.Errorf("entry %d binding = %d, want %d", i, e.Binding, w.binding)
		}
		if e.Buffer == nil || e.Buffer.Type != w.typ {
			t.Errorf("entry %d type = %v, want %v", i, e.Buffer, w.typ)
		}
		if e.Visibility != gputypes.ShaderStageCompute {
			t.Errorf("entry %d visibility = %v", i, e.Visibility)
		}
	}
}

func TestParamLayoutEntries(t *testing.T) {
	entries := paramLayoutEntries([]gpucore.BufferSlot{{Slot: 0, Size: 16}, {Slot: 2, Size: 16}})
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[1].Binding != 2 {
		t.Errorf("binding = %d, want 2", entries[1].Binding)
	}
	for _, e := range entries {
		if e.Buffer == nil || e.Buffer.Type != gputypes.BufferBindingTypeUniform {
			t.Errorf("slot %d is not a uniform", e.Binding)
		}
	}

	ext := extentLayoutEntries()
	if len(ext) != 1 || ext[0].Binding != 0 || ext[0].Buffer.Type != gputypes.BufferBindingTypeUniform {
		t.Errorf("extentLayoutEntries() = %+v", ext)
	}
}

func TestExtentSlot(t *testing.T) {
	tests := []struct {
		name  string
		slots []gpucore.TextureSlot
		want  int
		ok    bool
	}{
		{"none", nil, 0, false},
		{"generator", []gpucore.TextureSlot{{Slot: 0, Access: gpucore.TextureAccessWrite}}, 0, true},
		{"filter", []gpucore.TextureSlot{
			{Slot: 0, Access: gpucore.TextureAccessRead},
			{Slot: 1, Access: gpucore.TextureAccessWrite},
		}, 1, true},
		{"read only", []gpucore.TextureSlot{
			{Slot: 4, Access: gpucore.TextureAccessRead},
			{Slot: 2, Access: gpucore.TextureAccessRead},
		}, 4, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extentSlot(tt.slots)
			if got != tt.want || ok != tt.ok {
				t.Errorf("extentSlot() = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestExtentBytes(t *testing.T) {
	b := extentBytes(640, 480)
	if len(b) != extentSize {
		t.Fatalf("len = %d, want %d", len(b), extentSize)
	}
	if w := binary.LittleEndian.Uint32(b[0:]); w != 640 {
		t.Errorf("width = %d", w)
	}
	if h := binary.LittleEndian.Uint32(b[4:]); h != 480 {
		t.Errorf("height = %d", h)
	}
	for _, v := range b[8:] {
		if v != 0 {
			t.Fatalf("padding not zero: %v", b[8:])
		}
	}
}

func TestAlignment(t *testing.T) {
	tests := []struct {
		n, a4, u16 int
	}{
		{1, 4, 16},
		{4, 4, 16},
		{5, 8, 16},
		{16, 16, 16},
		{17, 20, 32},
	}
	for _, tt := range tests {
		if got := align4(tt.n); got != tt.a4 {
			t.Errorf("align4(%d) = %d, want %d", tt.n, got, tt.a4)
		}
		if got := uniformSize(tt.n); got != tt.u16 {
			t.Errorf("uniformSize(%d) = %d, want %d", tt.n, got, tt.u16)
		}
	}
}

func TestLimitsFrom(t *testing.T) {
	l := gputypes.DefaultLimits()
	g := limitsFrom(l)
	if g.maxInvocations != int(l.MaxComputeInvocationsPerWorkgroup) {
		t.Errorf("maxInvocations = %d, want %d", g.maxInvocations, l.MaxComputeInvocationsPerWorkgroup)
	}
	if g.maxSizeX != int(l.MaxComputeWorkgroupSizeX) || g.maxSizeY != int(l.MaxComputeWorkgroupSizeY) {
		t.Errorf("size = %dx%d", g.maxSizeX, g.maxSizeY)
	}
}

func TestCheckSide(t *testing.T) {
	g := groupLimits{maxInvocations: 256, maxSizeX: 256, maxSizeY: 64}
	tests := []struct {
		side int
		ok   bool
	}{
		{0, false},
		{-1, false},
		{1, true},
		{8, true},
		{16, true},
		{17, false}, // 289 invocations
	}
	for _, tt := range tests {
		err := g.checkSide(tt.side)
		if (err == nil) != tt.ok {
			t.Errorf("checkSide(%d) = %v, want ok=%v", tt.side, err, tt.ok)
		}
		if err != nil && !errors.Is(err, ErrWorkgroupTooLarge) {
			t.Errorf("checkSide(%d) error = %v, want ErrWorkgroupTooLarge", tt.side, err)
		}
	}

	narrow := groupLimits{maxInvocations: 1024, maxSizeX: 1024, maxSizeY: 8}
	if err := narrow.checkSide(16); err == nil {
		t.Error("checkSide(16) with maxSizeY 8 succeeded")
	}
}
