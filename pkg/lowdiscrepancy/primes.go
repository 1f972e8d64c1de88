package lowdiscrepancy

import "github.com/df07/go-render-sampling/pkg/rng"

// PrimeTableSize is the number of bases available to RadicalInverse and
// ScrambledRadicalInverse, and so the maximum number of Halton dimensions.
const PrimeTableSize = 256

// Primes holds the first PrimeTableSize primes in ascending order.
var Primes = func() [PrimeTableSize]int {
	var primes [PrimeTableSize]int
	primes[0] = 2
	count := 1
	for n := 3; count < PrimeTableSize; n += 2 {
		isPrime := true
		for i := 0; primes[i]*primes[i] <= n; i++ {
			if n%primes[i] == 0 {
				isPrime = false
				break
			}
		}
		if isPrime {
			primes[count] = n
			count++
		}
	}
	return primes
}()

// Permutations holds one digit permutation per prime base, used to
// scramble radical inverse sequences dimension by dimension.
type Permutations [][]uint16

// ComputeRadicalInversePermutations generates a random digit permutation
// for every base in the prime table, drawn from g. The same generator
// state always yields the same permutations, so a sampler seeded
// identically reproduces its sequences exactly.
func ComputeRadicalInversePermutations(g *rng.RNG) Permutations {
	perms := make(Permutations, PrimeTableSize)
	for i, base := range Primes {
		perm := make([]uint16, base)
		for d := range perm {
			perm[d] = uint16(d)
		}
		rng.Shuffle(perm, base, 1, g)
		perms[i] = perm
	}
	return perms
}

// ForDimension returns the digit permutation for the given dimension's
// prime base.
func (p Permutations) ForDimension(dim int) []uint16 {
	return p[dim]
}
