package patch

import (
	"container/heap"
	"fmt"
)

// ValidateOrder 静态校验补丁集的声明顺序。
//
// 同一目标上，若某个前置标记只由排在后面的补丁集提供，则顺序无效。
// 没有任何补丁集提供的标记视为外部标记，留给运行时检查。
func ValidateOrder(sets []PatchSet) error {
	if err := checkNames(sets); err != nil {
		return err
	}
	for i, set := range sets {
		for _, marker := range set.Requires {
			providers := providersOf(sets, set.Target, marker, i)
			if len(providers) == 0 {
				continue
			}
			earlier := false
			for _, j := range providers {
				if j < i {
					earlier = true
					break
				}
			}
			if !earlier {
				return &Error{
					Kind:   ErrInvalidOrder,
					Set:    set.Name,
					Marker: marker,
					Msg:    fmt.Sprintf("provided by later set %q", sets[providers[0]].Name),
				}
			}
		}
	}
	return nil
}

// Order 按前置/后置标记对补丁集做拓扑排序。
//
// 同一目标上 A 提供了 B 需要的标记时 A 排在 B 之前；无依赖关系时保持声明顺序。
func Order(sets []PatchSet) ([]PatchSet, error) {
	if err := checkNames(sets); err != nil {
		return nil, err
	}

	outgoing := make([][]int, len(sets))
	indeg := make([]int, len(sets))
	for j, set := range sets {
		seen := make(map[int]bool)
		for _, marker := range set.Requires {
			for _, i := range providersOf(sets, set.Target, marker, j) {
				if seen[i] {
					continue
				}
				seen[i] = true
				outgoing[i] = append(outgoing[i], j)
				indeg[j]++
			}
		}
	}

	ready := &intMinHeap{}
	for i := range indeg {
		if indeg[i] == 0 {
			heap.Push(ready, i)
		}
	}
	ordered := make([]PatchSet, 0, len(sets))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(int)
		ordered = append(ordered, sets[n])
		for _, m := range outgoing[n] {
			indeg[m]--
			if indeg[m] == 0 {
				heap.Push(ready, m)
			}
		}
	}
	if len(ordered) == len(sets) {
		return ordered, nil
	}
	return nil, cycleError(findCycle(sets, outgoing))
}

// providersOf 返回同一目标上提供 marker 的补丁集下标（不含 self）
func providersOf(sets []PatchSet, target, marker string, self int) []int {
	var out []int
	for i, s := range sets {
		if i == self || s.Target != target {
			continue
		}
		for _, p := range s.Provides {
			if p == marker {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

func checkNames(sets []PatchSet) error {
	seen := make(map[string]bool, len(sets))
	for _, s := range sets {
		if s.Name == "" {
			return orderf("patch set name is required")
		}
		if seen[s.Name] {
			return orderf("duplicate patch set %q", s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

type intMinHeap []int

func (h intMinHeap) Len() int           { return len(h) }
func (h intMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// findCycle 按下标顺序做 DFS，返回一个稳定的环路径，首尾相同
func findCycle(sets []PatchSet, outgoing [][]int) []string {
	const (
		white = iota
		gray
		black
	)
	color := make([]int, len(sets))
	var stack []int
	var cycle []int

	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		stack = append(stack, u)
		for _, v := range outgoing[u] {
			switch color[v] {
			case white:
				if dfs(v) {
					return true
				}
			case gray:
				for k := len(stack) - 1; k >= 0; k-- {
					if stack[k] == v {
						cycle = append(append([]int{}, stack[k:]...), v)
						return true
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[u] = black
		return false
	}

	for i := range sets {
		if color[i] == white && dfs(i) {
			break
		}
	}

	names := make([]string, 0, len(cycle))
	for _, idx := range cycle {
		names = append(names, sets[idx].Name)
	}
	return names
}
