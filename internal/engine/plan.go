package engine

import "fmt"

// Node — узел плана выполнения.
type Node struct {
	// Step — шаг workflow.
	Step *Step

	// ID — идентификатор шага.
	ID string

	// Index — позиция шага в workflow.
	Index int

	// InDegree — количество входящих рёбер (зависимостей).
	InDegree int

	// DependsOn — узлы, от которых зависит этот узел.
	DependsOn []*Node

	// Dependents — узлы, которые зависят от этого узла.
	Dependents []*Node
}

// Plan — план выполнения: граф зависимостей шагов в топологическом порядке.
//
// Узлы адресуются по *Step: ID генераторов не обязаны быть уникальными.
type Plan struct {
	// Nodes — узлы в порядке workflow.
	Nodes []*Node

	// RootNodes — узлы без зависимостей (точки входа).
	RootNodes []*Node

	// Order — топологически отсортированный список узлов.
	Order []*Node

	byStep map[*Step]*Node
}

// NewPlan строит план по разрешённому workflow.
// Возвращает ErrCyclicDependency, если граф содержит цикл.
func NewPlan(w *Workflow) (*Plan, error) {
	p := &Plan{
		Nodes:  make([]*Node, 0, len(w.steps)),
		byStep: make(map[*Step]*Node, len(w.steps)),
	}

	// Первый проход: создаём все узлы
	for i, step := range w.steps {
		node := &Node{
			Step:       step,
			ID:         step.ID,
			Index:      i,
			DependsOn:  make([]*Node, 0),
			Dependents: make([]*Node, 0),
		}
		p.Nodes = append(p.Nodes, node)
		p.byStep[step] = node
	}

	// Второй проход: связываем узлы по зависимостям
	for _, node := range p.Nodes {
		for _, dep := range node.Step.Dependencies() {
			depNode, ok := p.byStep[dep]
			if !ok {
				return nil, NewValidationError(node.ID, "dependencies",
					fmt.Sprintf("depends on step %s which is not in the workflow", dep.ID), ErrUnknownStep)
			}
			p.addEdge(depNode, node)
		}
	}

	p.findRootNodes()

	order, err := p.topologicalSort()
	if err != nil {
		return nil, err
	}
	p.Order = order

	return p, nil
}

// addEdge добавляет ребро между узлами.
// Дополнительно проверяет на дубликаты, чтобы избежать двойного учета InDegree.
func (p *Plan) addEdge(from, to *Node) {
	for _, dep := range to.DependsOn {
		if dep == from {
			return
		}
	}
	from.Dependents = append(from.Dependents, to)
	to.DependsOn = append(to.DependsOn, from)
	to.InDegree++
}

// findRootNodes находит узлы без входящих рёбер.
func (p *Plan) findRootNodes() {
	p.RootNodes = make([]*Node, 0)
	for _, node := range p.Nodes {
		if node.InDegree == 0 {
			p.RootNodes = append(p.RootNodes, node)
		}
	}
}

// topologicalSort выполняет топологическую сортировку (алгоритм Кана).
// Возвращает ошибку, если обнаружен цикл.
func (p *Plan) topologicalSort() ([]*Node, error) {
	// Копируем inDegree, чтобы не модифицировать оригинал
	inDegree := make(map[*Node]int, len(p.Nodes))
	for _, node := range p.Nodes {
		inDegree[node] = node.InDegree
	}

	queue := make([]*Node, len(p.RootNodes))
	copy(queue, p.RootNodes)

	order := make([]*Node, 0, len(p.Nodes))

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		for _, dependent := range node.Dependents {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	// Если не все узлы обработаны — есть цикл
	if len(order) != len(p.Nodes) {
		stuck := make([]string, 0)
		for _, node := range p.Nodes {
			if inDegree[node] > 0 {
				stuck = append(stuck, node.ID)
			}
		}
		return nil, fmt.Errorf("%w between steps %v", ErrCyclicDependency, stuck)
	}

	return order, nil
}

// GetReadyNodes возвращает узлы, готовые к выполнению, в порядке workflow.
//
// Узел готов, если:
// - Все его зависимости завершены (в completed)
// - Сам узел ещё не завершён и не в процессе (не в completed и не в running)
func (p *Plan) GetReadyNodes(completed, running map[*Step]bool) []*Node {
	ready := make([]*Node, 0)

	for _, node := range p.Nodes {
		if completed[node.Step] || running[node.Step] {
			continue
		}

		allDepsCompleted := true
		for _, dep := range node.DependsOn {
			if !completed[dep.Step] {
				allDepsCompleted = false
				break
			}
		}

		if allDepsCompleted {
			ready = append(ready, node)
		}
	}

	return ready
}

// Node возвращает узел шага.
func (p *Plan) Node(step *Step) *Node {
	return p.byStep[step]
}

// Size возвращает количество узлов.
func (p *Plan) Size() int {
	return len(p.Nodes)
}

// IsComplete проверяет, все ли узлы завершены.
func (p *Plan) IsComplete(completed map[*Step]bool) bool {
	for _, node := range p.Nodes {
		if !completed[node.Step] {
			return false
		}
	}
	return true
}
