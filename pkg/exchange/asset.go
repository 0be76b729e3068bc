package exchange

// AssetResolver maps coin names to the asset indices used on the wire.
type AssetResolver interface {
	AssetIndex(coin string) (uint32, bool)
	Coin(index uint32) (string, bool)
}

// AssetMeta is one entry of the exchange's perp universe.
type AssetMeta struct {
	Name       string `json:"name" yaml:"name"`             // e.g. "BTC"
	SzDecimals uint32 `json:"szDecimals" yaml:"szDecimals"` // size precision
}

// Universe resolves assets by their position in the meta universe.
type Universe struct {
	assets []AssetMeta
	byCoin map[string]uint32
}

// NewUniverse indexes assets in order; the first entry is asset 0.
func NewUniverse(assets []AssetMeta) *Universe {
	u := &Universe{
		assets: append([]AssetMeta(nil), assets...),
		byCoin: make(map[string]uint32, len(assets)),
	}
	for i, a := range u.assets {
		u.byCoin[a.Name] = uint32(i)
	}
	return u
}

func (u *Universe) AssetIndex(coin string) (uint32, bool) {
	idx, ok := u.byCoin[coin]
	return idx, ok
}

func (u *Universe) Coin(index uint32) (string, bool) {
	if int(index) >= len(u.assets) {
		return "", false
	}
	return u.assets[index].Name, true
}

// Assets returns a copy of the universe entries.
func (u *Universe) Assets() []AssetMeta {
	return append([]AssetMeta(nil), u.assets...)
}

var _ AssetResolver = (*Universe)(nil)
