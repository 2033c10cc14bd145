package clientcontext

import (
	"slices"

	"github.com/sessamekesh/universe-client/pkg/datastream"
)

type ShipUpgrades struct {
	ShipLevel      uint32
	MaxFuel        uint32
	CrewSize       uint32
	FuelEfficiency float32
	ShipSpeed      float32
	Capabilities   []string
}

func (u ShipUpgrades) HasCapability(name string) bool {
	return slices.Contains(u.Capabilities, name)
}

func (u ShipUpgrades) Equal(o ShipUpgrades) bool {
	return u.ShipLevel == o.ShipLevel &&
		u.MaxFuel == o.MaxFuel &&
		u.CrewSize == o.CrewSize &&
		u.FuelEfficiency == o.FuelEfficiency &&
		u.ShipSpeed == o.ShipSpeed &&
		slices.Equal(u.Capabilities, o.Capabilities)
}

func (u ShipUpgrades) Write(w *datastream.Writer) {
	w.WriteVarUint(uint64(u.ShipLevel))
	w.WriteVarUint(uint64(u.MaxFuel))
	w.WriteVarUint(uint64(u.CrewSize))
	w.WriteFloat32(u.FuelEfficiency)
	w.WriteFloat32(u.ShipSpeed)
	w.WriteStrings(u.Capabilities)
}

func ReadShipUpgrades(r *datastream.Reader) ShipUpgrades {
	return ShipUpgrades{
		ShipLevel:      uint32(r.ReadVarUint()),
		MaxFuel:        uint32(r.ReadVarUint()),
		CrewSize:       uint32(r.ReadVarUint()),
		FuelEfficiency: r.ReadFloat32(),
		ShipSpeed:      r.ReadFloat32(),
		Capabilities:   r.ReadStrings(),
	}
}

func (u ShipUpgrades) Encode() []byte {
	w := datastream.NewWriter()
	u.Write(w)
	return w.Bytes()
}

func DecodeShipUpgrades(data []byte) (ShipUpgrades, error) {
	r := datastream.NewReader(data, "ShipUpgrades")
	u := ReadShipUpgrades(r)
	return u, r.Err()
}
