package summary

import (
	"fmt"
	"regexp"
	"strconv"
)

var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// RenumberCitations rewrites bracketed citation numbers so they count
// up in order of first appearance. Models cite excerpts in whatever
// order suits the prose; readers expect [1] to come before [2]. Every
// occurrence of the same original number maps to the same new number.
// The returned slice holds the original numbers in their new order, so
// callers can rearrange the cited-source list to match.
func RenumberCitations(text string) (string, []int) {
	assigned := make(map[int]int)
	order := make([]int, 0, 4)

	renumbered := citationPattern.ReplaceAllStringFunc(text, func(match string) string {
		num, err := strconv.Atoi(match[1 : len(match)-1])
		if err != nil {
			return match
		}
		newNum, seen := assigned[num]
		if !seen {
			newNum = len(order) + 1
			assigned[num] = newNum
			order = append(order, num)
		}
		return fmt.Sprintf("[%d]", newNum)
	})

	return renumbered, order
}
