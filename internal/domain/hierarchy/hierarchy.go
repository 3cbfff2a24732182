// Пакет hierarchy — алгоритмы над лесом кодов классификации:
// обход предков, проверка циклов, построение дерева.
package hierarchy

import (
	"errors"
	"sort"

	"github.com/bigkaa/goarsip/internal/domain/model"
)

// ErrCycle — цепочка родителей не завершилась за число шагов,
// равное количеству кодов.
var ErrCycle = errors.New("цепочка родителей содержит цикл")

// Forest — отображение код → код родителя (nil для корня).
type Forest map[string]*string

// NewForest строит Forest из списка кодов.
func NewForest(codes []model.ClassificationCode) Forest {
	f := make(Forest, len(codes))
	for i := range codes {
		f[codes[i].Code] = codes[i].ParentCode
	}
	return f
}

// Contains сообщает, существует ли код.
func (f Forest) Contains(code string) bool {
	_, ok := f[code]
	return ok
}

// Ancestors возвращает предков кода, начиная с ближайшего.
// Обход ограничен len(f) шагами; превышение означает цикл.
func (f Forest) Ancestors(code string) ([]string, error) {
	var chain []string
	cur := f[code]
	for hops := 0; cur != nil; hops++ {
		if hops >= len(f) {
			return nil, ErrCycle
		}
		chain = append(chain, *cur)
		cur = f[*cur]
	}
	return chain, nil
}

// WouldCycle сообщает, сделает ли назначение parent родителем code
// код собственным предком.
func (f Forest) WouldCycle(code, parent string) bool {
	if code == parent {
		return true
	}
	cur := &parent
	for hops := 0; cur != nil; hops++ {
		if *cur == code {
			return true
		}
		// Уже существующий цикл выше parent — тоже отказ.
		if hops > len(f) {
			return true
		}
		cur = f[*cur]
	}
	return false
}

// Validate проверяет, что все цепочки завершаются.
// Возвращает ErrCycle при первом найденном цикле.
func (f Forest) Validate() error {
	for code := range f {
		if _, err := f.Ancestors(code); err != nil {
			return err
		}
	}
	return nil
}

// BuildTree собирает лес узлов, упорядоченных по коду на каждом уровне.
// Коды с отсутствующим родителем становятся корнями.
func BuildTree(codes []model.ClassificationCode) []*model.ClassificationNode {
	nodes := make(map[string]*model.ClassificationNode, len(codes))
	for i := range codes {
		nodes[codes[i].Code] = &model.ClassificationNode{Code: codes[i]}
	}

	var roots []*model.ClassificationNode
	for i := range codes {
		n := nodes[codes[i].Code]
		if p := codes[i].ParentCode; p != nil {
			if parent, ok := nodes[*p]; ok && *p != codes[i].Code {
				parent.Children = append(parent.Children, n)
				continue
			}
		}
		roots = append(roots, n)
	}

	sortNodes(roots)
	return roots
}

func sortNodes(nodes []*model.ClassificationNode) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Code.Code < nodes[j].Code.Code })
	for _, n := range nodes {
		sortNodes(n.Children)
	}
}
