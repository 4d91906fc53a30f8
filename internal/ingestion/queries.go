package ingestion

// Event kinds, used as metric labels and in IngestionFailure.
const (
	KindMarkets   = "markets"
	KindTransfers = "transfers"
	KindPools     = "pools"
	KindPrices    = "pool_prices"
	KindPositions = "position_snapshots"
	KindMints     = "mints"
	KindBurns     = "burns"
	KindHumans    = "humans"
	KindMeta      = "meta"
)

// Every paginated query aliases its entity list to rows, orders by id
// ascending and filters on id_gt, so the last row's id is the next cursor.

const marketsQuery = `query Markets($first: Int!, $cursor: String!) {
  rows: markets(first: $first, orderBy: id, orderDirection: asc, where: {id_gt: $cursor}) {
    id
    collateralToken
    wrappedTokens
  }
}`

const transfersQuery = `query Transfers($first: Int!, $cursor: String!, $tokens: [String!]!, $from: BigInt!, $to: BigInt!) {
  rows: transfers(first: $first, orderBy: id, orderDirection: asc,
    where: {id_gt: $cursor, token_in: $tokens, timestamp_gte: $from, timestamp_lt: $to}) {
    id
    token
    from
    to
    value
    timestamp
    blockNumber
  }
}`

const poolsByToken0Query = `query PoolsByToken0($first: Int!, $cursor: String!, $tokens: [String!]!) {
  rows: pools(first: $first, orderBy: id, orderDirection: asc, where: {id_gt: $cursor, token0_in: $tokens}) {
    id
    token0 { id }
    token1 { id }
  }
}`

const poolsByToken1Query = `query PoolsByToken1($first: Int!, $cursor: String!, $tokens: [String!]!) {
  rows: pools(first: $first, orderBy: id, orderDirection: asc, where: {id_gt: $cursor, token1_in: $tokens}) {
    id
    token0 { id }
    token1 { id }
  }
}`

const poolPricesQuery = `query PoolPrices($first: Int!, $cursor: String!, $pools: [String!]!, $to: Int!) {
  rows: poolHourDatas(first: $first, orderBy: id, orderDirection: asc,
    where: {id_gt: $cursor, pool_in: $pools, periodStartUnix_lte: $to}) {
    id
    pool { id }
    token0Price
    token1Price
    sqrtPrice
    periodStartUnix
  }
}`

const positionSnapshotsQuery = `query PositionSnapshots($first: Int!, $cursor: String!, $from: BigInt!, $to: BigInt!) {
  rows: positionSnapshots(first: $first, orderBy: id, orderDirection: asc,
    where: {id_gt: $cursor, timestamp_gte: $from, timestamp_lt: $to}) {
    id
    position {
      id
      tickLower
      tickUpper
      pool { id token0 { id } token1 { id } }
    }
    tick
    liquidity
    totalSupply
    from
    to
    value
    timestamp
    blockNumber
  }
}`

const mintsQuery = `query Mints($first: Int!, $cursor: String!, $pools: [String!]!, $from: BigInt!, $to: BigInt!) {
  rows: mints(first: $first, orderBy: id, orderDirection: asc,
    where: {id_gt: $cursor, pool_in: $pools, timestamp_gte: $from, timestamp_lt: $to}) {
    id
    pool { id token0 { id } token1 { id } }
    amount0
    amount1
    origin
    timestamp
    transaction { blockNumber }
  }
}`

const burnsQuery = `query Burns($first: Int!, $cursor: String!, $pools: [String!]!, $from: BigInt!, $to: BigInt!) {
  rows: burns(first: $first, orderBy: id, orderDirection: asc,
    where: {id_gt: $cursor, pool_in: $pools, timestamp_gte: $from, timestamp_lt: $to}) {
    id
    pool { id token0 { id } token1 { id } }
    amount0
    amount1
    origin
    timestamp
    transaction { blockNumber }
  }
}`

const humansQuery = `query Humans($first: Int!, $cursor: String!) {
  rows: registrations(first: $first, orderBy: id, orderDirection: asc, where: {id_gt: $cursor}) {
    id
  }
}`

const metaQuery = `{ _meta { block { timestamp } } }`
