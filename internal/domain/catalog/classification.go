package catalog

import "sort"

// 商品の販売形態（量り売り / 単品）
type Group string

const (
	GroupWeightBased Group = "weight-based"
	GroupUnitBased   Group = "unit-based"
)

type Category string

const (
	CategoryYerbas     Category = "Yerbas"
	CategoryMates      Category = "Mates"
	CategoryBombillas  Category = "Bombillas"
	CategoryTermos     Category = "Termos"
	CategoryAccesorios Category = "Accesorios"
)

// Table はカテゴリ→typeの一覧、type→Groupの対応表。
// クライアント側の検証とサーバ側の正規化はこの1つの表だけを参照する。
type Table struct {
	categories []Category
	types      map[Category][]string
	groups     map[string]Group
}

// TableEntry は1カテゴリ分の定義。
type TableEntry struct {
	Category Category
	Types    map[string]Group
}

// NewTable は定義から対応表を作る。
// 同じtypeが別のGroupで2回出てきたら後勝ちにせずpanicする（定義ミス）。
func NewTable(entries ...TableEntry) *Table {
	t := &Table{
		types:  make(map[Category][]string, len(entries)),
		groups: make(map[string]Group),
	}
	for _, e := range entries {
		t.categories = append(t.categories, e.Category)

		names := make([]string, 0, len(e.Types))
		for name, g := range e.Types {
			if prev, ok := t.groups[name]; ok && prev != g {
				panic("catalog: type " + name + " classified twice with different groups")
			}
			t.groups[name] = g
			names = append(names, name)
		}
		sort.Strings(names)
		t.types[e.Category] = names
	}
	return t
}

var defaultTable = NewTable(
	TableEntry{Category: CategoryYerbas, Types: map[string]Group{
		"yerba":           GroupWeightBased,
		"yerba compuesta": GroupWeightBased,
		"yerba organica":  GroupWeightBased,
	}},
	TableEntry{Category: CategoryMates, Types: map[string]Group{
		"mate calabaza": GroupUnitBased,
		"mate madera":   GroupUnitBased,
		"mate vidrio":   GroupUnitBased,
		"mate acero":    GroupUnitBased,
		"mate ceramica": GroupUnitBased,
	}},
	TableEntry{Category: CategoryBombillas, Types: map[string]Group{
		"bombilla alpaca": GroupUnitBased,
		"bombilla acero":  GroupUnitBased,
		"bombilla caña":   GroupUnitBased,
	}},
	TableEntry{Category: CategoryTermos, Types: map[string]Group{
		"termo": GroupUnitBased,
	}},
	TableEntry{Category: CategoryAccesorios, Types: map[string]Group{
		"yerbera": GroupUnitBased,
		"matera":  GroupUnitBased,
		"set":     GroupUnitBased,
	}},
)

// DefaultTable は本番で使う対応表。
func DefaultTable() *Table {
	return defaultTable
}

func (t *Table) Categories() []Category {
	out := make([]Category, len(t.categories))
	copy(out, t.categories)
	return out
}

func (t *Table) IsCategory(c string) bool {
	_, ok := t.types[Category(c)]
	return ok
}

// TypesFor はカテゴリで選べるtype一覧（未知のカテゴリならnil）
func (t *Table) TypesFor(c Category) []string {
	names := t.types[c]
	if names == nil {
		return nil
	}
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// Allows はtypeがカテゴリの許可リストに入っているか
func (t *Table) Allows(c Category, typ string) bool {
	for _, name := range t.types[c] {
		if name == typ {
			return true
		}
	}
	return false
}

// GroupOf はtypeの販売形態を返す。表にないtypeはfalse。
func (t *Table) GroupOf(typ string) (Group, bool) {
	g, ok := t.groups[typ]
	return g, ok
}

// TableView は /catalog/classification のレスポンス形。
type TableView struct {
	Categories []CategoryView `json:"categories"`
}

type CategoryView struct {
	Name  Category   `json:"name"`
	Types []TypeView `json:"types"`
}

type TypeView struct {
	Name  string `json:"name"`
	Group Group  `json:"group"`
}

func (t *Table) View() TableView {
	v := TableView{Categories: make([]CategoryView, 0, len(t.categories))}
	for _, c := range t.categories {
		cv := CategoryView{Name: c}
		for _, name := range t.types[c] {
			cv.Types = append(cv.Types, TypeView{Name: name, Group: t.groups[name]})
		}
		v.Categories = append(v.Categories, cv)
	}
	return v
}
